package entity

import "time"

// StepStatus represents the status of a single claim-processing step
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusCancelled  StepStatus = "cancelled"
)

var validStepStatuses = map[StepStatus]bool{
	StepStatusPending:    true,
	StepStatusInProgress: true,
	StepStatusCompleted:  true,
	StepStatusCancelled:  true,
}

// IsValid returns true if the status is a defined step status
func (s StepStatus) IsValid() bool {
	return validStepStatuses[s]
}

// String returns the string representation of the status
func (s StepStatus) String() string {
	return string(s)
}

// StepDetail is a typed, additive key-value store attached to a step. It holds
// transition notes and idempotency flags (for example "notification already
// sent"). Writes go through Merge so earlier flags survive later transitions.
type StepDetail map[string]string

// Merge copies entries from other into the detail map without removing
// existing keys. Keys present in both are overwritten by other, absent keys
// are preserved.
func (d StepDetail) Merge(other StepDetail) StepDetail {
	if d == nil {
		d = make(StepDetail, len(other))
	}
	for k, v := range other {
		d[k] = v
	}
	return d
}

// Flag reports whether the named boolean flag is set
func (d StepDetail) Flag(key string) bool {
	return d[key] == "true"
}

// SetFlag sets the named boolean flag
func (d StepDetail) SetFlag(key string) {
	d[key] = "true"
}

// ProcessStep is one persisted unit of the claim workflow template. Exactly
// one step exists per (claim, catalog key) pair; order, title and description
// always mirror the catalog.
type ProcessStep struct {
	ID          int64       `json:"id"`
	ClaimID     int64       `json:"claim_id"`
	Key         string      `json:"key"`
	Order       int         `json:"order"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      StepStatus  `json:"status"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	ActorID     string      `json:"actor_id,omitempty"`
	Detail      StepDetail  `json:"detail,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
