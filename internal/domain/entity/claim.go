package entity

import (
	"errors"
	"time"
)

// ClaimStatus represents the lifecycle status of a claim
type ClaimStatus string

const (
	ClaimStatusInProgress ClaimStatus = "in_progress"
	ClaimStatusResolved   ClaimStatus = "resolved"
	ClaimStatusCancelled  ClaimStatus = "cancelled"
)

var validClaimStatuses = map[ClaimStatus]bool{
	ClaimStatusInProgress: true,
	ClaimStatusResolved:   true,
	ClaimStatusCancelled:  true,
}

// IsValid returns true if the status is a defined claim status
func (s ClaimStatus) IsValid() bool {
	return validClaimStatuses[s]
}

// String returns the string representation of the status
func (s ClaimStatus) String() string {
	return string(s)
}

// ErrClaimNumberImmutable is returned when assigning a number to a claim
// that already carries one
var ErrClaimNumberImmutable = errors.New("claim number is immutable once assigned")

// Claim (French "sinistre") is the case record tracking one alert from
// intake to resolution and billing.
type Claim struct {
	ID                   int64       `json:"id"`
	AlertID              int64       `json:"alert_id"`
	SubscriptionID       int64       `json:"subscription_id"`
	HospitalID           *int64      `json:"hospital_id,omitempty"`
	ClaimNumber          *string     `json:"claim_number,omitempty"`
	Status               ClaimStatus `json:"status"`
	CaseAgentID          string      `json:"case_agent_id"`
	ReferringPhysicianID string      `json:"referring_physician_id"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// AssignNumber sets the human-readable claim number. The number is write-once:
// assigning over an existing number fails, re-assigning the same value is a no-op.
func (c *Claim) AssignNumber(number string) error {
	if c.ClaimNumber != nil {
		if *c.ClaimNumber == number {
			return nil
		}
		return ErrClaimNumberImmutable
	}
	c.ClaimNumber = &number
	return nil
}

// HasHospital reports whether a hospital has been assigned to the claim
func (c *Claim) HasHospital() bool {
	return c.HospitalID != nil
}

// HasNumber reports whether the claim number has been assigned
func (c *Claim) HasNumber() bool {
	return c.ClaimNumber != nil && *c.ClaimNumber != ""
}
