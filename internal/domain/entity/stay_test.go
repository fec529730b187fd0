package entity

import (
	"testing"
	"time"
)

func TestDurationDays(t *testing.T) {
	admitted := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		discharged *time.Time
		now        time.Time
		want       int
	}{
		{"same day", nil, admitted.Add(6 * time.Hour), 1},
		{"open stay measured to now", nil, admitted.Add(72 * time.Hour), 3},
		{"discharged", timePtr(admitted.Add(49 * time.Hour)), admitted.Add(200 * time.Hour), 2},
		{"discharge before admission clamps to one", timePtr(admitted.Add(-time.Hour)), admitted, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stay := &HospitalStay{AdmittedAt: admitted, DischargedAt: tc.discharged}
			if got := stay.DurationDays(tc.now); got != tc.want {
				t.Errorf("DurationDays() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestStayStatusIsTerminal(t *testing.T) {
	if !StayStatusInvoiced.IsTerminal() {
		t.Error("invoiced not terminal")
	}
	for _, s := range []StayStatus{StayStatusInProgress, StayStatusAwaitingValidation, StayStatusValidated, StayStatusRejected} {
		if s.IsTerminal() {
			t.Errorf("%s reported terminal", s)
		}
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
