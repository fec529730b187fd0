package entity

import "time"

// StayStatus represents the overall status of a hospital stay
type StayStatus string

const (
	StayStatusInProgress         StayStatus = "in_progress"
	StayStatusAwaitingValidation StayStatus = "awaiting_validation"
	StayStatusValidated          StayStatus = "validated"
	StayStatusRejected           StayStatus = "rejected"
	StayStatusInvoiced           StayStatus = "invoiced"
)

var validStayStatuses = map[StayStatus]bool{
	StayStatusInProgress:         true,
	StayStatusAwaitingValidation: true,
	StayStatusValidated:          true,
	StayStatusRejected:           true,
	StayStatusInvoiced:           true,
}

// IsValid returns true if the status is a defined stay status
func (s StayStatus) IsValid() bool {
	return validStayStatuses[s]
}

// IsTerminal returns true once the stay has been invoiced
func (s StayStatus) IsTerminal() bool {
	return s == StayStatusInvoiced
}

// String returns the string representation of the status
func (s StayStatus) String() string {
	return string(s)
}

// ReportStatus represents the status of the medical report attached to a stay
type ReportStatus string

const (
	ReportStatusNone      ReportStatus = "none"
	ReportStatusSubmitted ReportStatus = "submitted"
	ReportStatusApproved  ReportStatus = "approved"
	ReportStatusRejected  ReportStatus = "rejected"
)

var validReportStatuses = map[ReportStatus]bool{
	ReportStatusNone:      true,
	ReportStatusSubmitted: true,
	ReportStatusApproved:  true,
	ReportStatusRejected:  true,
}

// IsValid returns true if the status is a defined report status
func (s ReportStatus) IsValid() bool {
	return validReportStatuses[s]
}

// String returns the string representation of the status
func (s ReportStatus) String() string {
	return string(s)
}

// HospitalStay records in-hospital care tied to one claim. At most one stay
// exists per claim; the record is terminal once invoiced.
type HospitalStay struct {
	ID              int64        `json:"id"`
	ClaimID         int64        `json:"claim_id"`
	DoctorID        string       `json:"doctor_id"`
	AdmittedAt      time.Time    `json:"admitted_at"`
	DischargedAt    *time.Time   `json:"discharged_at,omitempty"`
	Report          string       `json:"report,omitempty"`
	ActsCount       int          `json:"acts_count"`
	ExamsCount      int          `json:"exams_count"`
	ReportStatus    ReportStatus `json:"report_status"`
	Status          StayStatus   `json:"status"`
	ValidatedBy     *string      `json:"validated_by,omitempty"`
	ValidatedAt     *time.Time   `json:"validated_at,omitempty"`
	ValidationNotes string       `json:"validation_notes,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// DurationDays returns the stay duration in whole days, minimum one. Open
// stays are measured against the current time.
func (h *HospitalStay) DurationDays(now time.Time) int {
	end := now
	if h.DischargedAt != nil {
		end = *h.DischargedAt
	}
	days := int(end.Sub(h.AdmittedAt).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return days
}
