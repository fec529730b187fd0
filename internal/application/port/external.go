package port

import "context"

// NotificationDispatcher sends outbound notifications to actors. Dispatch is
// fire-and-forget: implementations must not block the caller on delivery and
// must not surface delivery failures as errors. Services call Notify after
// the primary transaction has committed.
type NotificationDispatcher interface {
	Notify(ctx context.Context, recipientIDs []string, title, message string, relatedEntity string, relatedID int64)
}

// NopDispatcher discards notifications. Used in tests and when no transport
// is configured.
type NopDispatcher struct{}

// Notify implements NotificationDispatcher
func (NopDispatcher) Notify(ctx context.Context, recipientIDs []string, title, message string, relatedEntity string, relatedID int64) {
}
