package entity

import "time"

// NotificationStatus tracks delivery of an outbound notification
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// String returns the string representation of the status
func (s NotificationStatus) String() string {
	return string(s)
}

// Notification is an outbound message queued for fire-and-forget delivery
// after a workflow transaction commits. Delivery failures are recorded, never
// retried in the request path.
type Notification struct {
	ID            int64              `json:"id"`
	DedupKey      string             `json:"dedup_key"`
	RecipientID   string             `json:"recipient_id"`
	Title         string             `json:"title"`
	Message       string             `json:"message"`
	RelatedEntity string             `json:"related_entity"`
	RelatedID     int64              `json:"related_id"`
	Status        NotificationStatus `json:"status"`
	Error         string             `json:"error,omitempty"`
	SentAt        *time.Time         `json:"sent_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}
