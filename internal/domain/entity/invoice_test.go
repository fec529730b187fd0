package entity

import (
	"testing"
	"time"
)

func TestStageLabel(t *testing.T) {
	cases := []struct {
		status InvoiceStatus
		want   string
	}{
		{InvoiceStatusPendingMedical, "medical"},
		{InvoiceStatusPendingSinistre, "sinistre"},
		{InvoiceStatusPendingCompta, "compta"},
		{InvoiceStatusValidated, "compta"},
		{InvoiceStatusPaid, "compta"},
		{InvoiceStatusRejected, "rejected"},
		{InvoiceStatusDraft, ""},
	}
	for _, tc := range cases {
		if got := StageLabel(tc.status); got != tc.want {
			t.Errorf("StageLabel(%s) = %q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestDecisionFor(t *testing.T) {
	inv := &Invoice{}

	approved := DecisionApproved
	inv.DecisionFor(StageMedical).Value = &approved

	if !inv.Medical.IsApproved() {
		t.Error("write through DecisionFor not reflected on the invoice")
	}
	if inv.DecisionFor(StageSinistre).Value != nil {
		t.Error("untouched stage has a value")
	}
	if inv.DecisionFor(Stage("legal")) != nil {
		t.Error("unknown stage returned a record")
	}
}

func TestStageDecisionPredicates(t *testing.T) {
	var noDecision StageDecision
	if noDecision.IsDecided() || noDecision.IsApproved() || noDecision.IsRejected() {
		t.Error("unreached stage reports a decision")
	}

	pending := DecisionPending
	now := time.Now()
	d := StageDecision{Value: &pending, DecidedAt: &now}
	if d.IsDecided() {
		t.Error("pending stage reports decided")
	}

	rejected := DecisionRejected
	d.Value = &rejected
	if !d.IsDecided() || !d.IsRejected() || d.IsApproved() {
		t.Error("rejected stage predicates wrong")
	}
}

func TestInvoiceStatusIsTerminal(t *testing.T) {
	for _, s := range []InvoiceStatus{InvoiceStatusRejected, InvoiceStatusPaid} {
		if !s.IsTerminal() {
			t.Errorf("%s not terminal", s)
		}
	}
	for _, s := range []InvoiceStatus{InvoiceStatusPendingMedical, InvoiceStatusPendingSinistre, InvoiceStatusPendingCompta, InvoiceStatusValidated} {
		if s.IsTerminal() {
			t.Errorf("%s reported terminal", s)
		}
	}
}
