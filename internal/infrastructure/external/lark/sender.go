package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/medassist/claims-backoffice/internal/infrastructure/notification"
)

// Sender delivers notifications as Lark text messages. Recipient IDs are Lark
// open IDs.
type Sender struct {
	client *Client
	logger *zap.Logger
}

// NewSender creates a new Lark notification sender
func NewSender(client *Client, logger *zap.Logger) *Sender {
	return &Sender{
		client: client,
		logger: logger,
	}
}

// Send implements notification.Sender
func (s *Sender) Send(ctx context.Context, recipientID, title, message string) error {
	if recipientID == "" {
		return fmt.Errorf("recipientID cannot be empty")
	}

	content, err := textContent(title, message)
	if err != nil {
		return err
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("open_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(recipientID).
			MsgType("text").
			Content(content).
			Build()).
		Build()

	resp, err := s.client.sdk.Im.Message.Create(ctx, req)
	if err != nil {
		s.logger.Error("Failed to send message",
			zap.String("receive_id", recipientID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		s.logger.Error("API returned failure",
			zap.String("receive_id", recipientID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	return nil
}

// textContent builds the Lark text message payload. Title and message are
// joined on one line; json.Marshal handles escaping.
func textContent(title, message string) (string, error) {
	text := message
	if title != "" {
		text = title + ": " + message
	}

	raw, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message content: %w", err)
	}
	return string(raw), nil
}

var _ notification.Sender = (*Sender)(nil)
