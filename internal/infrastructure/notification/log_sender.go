package notification

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes notifications to the application log. It is the transport
// used when no Lark credentials are configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a log-only sender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements Sender
func (s *LogSender) Send(ctx context.Context, recipientID, title, message string) error {
	s.logger.Info("Notification",
		zap.String("recipient_id", recipientID),
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

var _ Sender = (*LogSender)(nil)
