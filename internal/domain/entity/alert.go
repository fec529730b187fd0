package entity

import "time"

// AlertStatus represents the lifecycle status of an emergency alert
type AlertStatus string

const (
	AlertStatusOpen       AlertStatus = "open"
	AlertStatusInProgress AlertStatus = "in_progress"
	AlertStatusResolved   AlertStatus = "resolved"
	AlertStatusCancelled  AlertStatus = "cancelled"
)

var validAlertStatuses = map[AlertStatus]bool{
	AlertStatusOpen:       true,
	AlertStatusInProgress: true,
	AlertStatusResolved:   true,
	AlertStatusCancelled:  true,
}

// IsValid returns true if the status is a defined alert status
func (s AlertStatus) IsValid() bool {
	return validAlertStatuses[s]
}

// String returns the string representation of the status
func (s AlertStatus) String() string {
	return string(s)
}

// Alert represents a reported emergency that initiates the claims workflow.
// Alerts are created by an end user action, mutated by workflow progression
// and never deleted.
type Alert struct {
	ID          int64       `json:"id"`
	ReporterID  string      `json:"reporter_id"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Priority    string      `json:"priority"`
	Description string      `json:"description"`
	Status      AlertStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
