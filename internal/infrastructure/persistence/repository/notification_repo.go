package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medassist/claims-backoffice/internal/application/port"
	"github.com/medassist/claims-backoffice/internal/domain/entity"
	"github.com/medassist/claims-backoffice/internal/infrastructure/persistence/sqlite"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new notification record
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (
			dedup_key, recipient_id, title, message, related_entity,
			related_id, status, error, sent_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		n.DedupKey,
		n.RecipientID,
		n.Title,
		n.Message,
		n.RelatedEntity,
		n.RelatedID,
		n.Status.String(),
		n.Error,
		n.SentAt,
		n.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification", zap.String("dedup_key", n.DedupKey), zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	n.ID = id
	return nil
}

// GetByDedupKey retrieves a notification by its dedup key, returning nil when
// not found
func (r *NotificationRepository) GetByDedupKey(ctx context.Context, key string) (*entity.Notification, error) {
	query := `
		SELECT id, dedup_key, recipient_id, title, message, related_entity,
			related_id, status, error, sent_at, created_at
		FROM notifications
		WHERE dedup_key = ?
	`

	var n entity.Notification
	var status string
	var sentAt sql.NullTime

	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, key).Scan(
		&n.ID,
		&n.DedupKey,
		&n.RecipientID,
		&n.Title,
		&n.Message,
		&n.RelatedEntity,
		&n.RelatedID,
		&status,
		&n.Error,
		&sentAt,
		&n.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get notification", zap.String("dedup_key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	n.Status = entity.NotificationStatus(status)
	if sentAt.Valid {
		n.SentAt = &sentAt.Time
	}

	return &n, nil
}

// MarkSent records successful delivery of a notification
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64) error {
	query := `UPDATE notifications SET status = ?, error = '', sent_at = ? WHERE id = ?`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		entity.NotificationStatusSent.String(), time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to mark notification sent", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	return nil
}

// MarkFailed records a delivery failure with its error message
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	query := `UPDATE notifications SET status = ?, error = ? WHERE id = ?`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		entity.NotificationStatusFailed.String(), errMsg, id)
	if err != nil {
		r.logger.Error("Failed to mark notification failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
