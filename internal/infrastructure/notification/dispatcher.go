package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/medassist/claims-backoffice/internal/application/port"
	"github.com/medassist/claims-backoffice/internal/domain/entity"
)

// Sender delivers one notification over a concrete transport
type Sender interface {
	Send(ctx context.Context, recipientID, title, message string) error
}

// Dispatcher queues notifications and delivers them on a background worker.
// Every dispatch is recorded as a notification row before delivery; delivery
// failures are logged and marked, never surfaced to the caller.
type Dispatcher struct {
	repo        port.NotificationRepository
	sender      Sender
	logger      *zap.Logger
	queue       chan *entity.Notification
	sendTimeout time.Duration

	wg sync.WaitGroup

	// mu orders Notify against Close so the queue is never written after
	// it has been closed.
	mu     sync.RWMutex
	closed bool
}

// Config holds dispatcher settings
type Config struct {
	QueueSize   int
	SendTimeout time.Duration
}

// NewDispatcher creates a dispatcher and starts its delivery worker
func NewDispatcher(cfg Config, repo port.NotificationRepository, sender Sender, logger *zap.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	d := &Dispatcher{
		repo:        repo,
		sender:      sender,
		logger:      logger,
		queue:       make(chan *entity.Notification, cfg.QueueSize),
		sendTimeout: cfg.SendTimeout,
	}

	d.wg.Add(1)
	go d.deliverLoop()

	return d
}

// Notify implements port.NotificationDispatcher. One notification row is
// created per recipient; enqueueing never blocks the caller. A repeated
// dispatch for the same recipient, related record, and title is skipped.
func (d *Dispatcher) Notify(ctx context.Context, recipientIDs []string, title, message string, relatedEntity string, relatedID int64) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Error("Cannot notify, dispatcher is closed", zap.String("title", title))
		return
	}

	for _, recipientID := range recipientIDs {
		if recipientID == "" {
			continue
		}

		dedupKey := fmt.Sprintf("%s|%s|%d|%s", recipientID, relatedEntity, relatedID, title)
		existing, err := d.repo.GetByDedupKey(ctx, dedupKey)
		if err != nil {
			d.logger.Error("Failed to check notification dedup key",
				zap.String("dedup_key", dedupKey),
				zap.Error(err))
			continue
		}
		if existing != nil {
			d.logger.Debug("Skipping duplicate notification",
				zap.String("dedup_key", dedupKey),
				zap.Int64("notification_id", existing.ID))
			continue
		}

		n := &entity.Notification{
			DedupKey:      dedupKey,
			RecipientID:   recipientID,
			Title:         title,
			Message:       message,
			RelatedEntity: relatedEntity,
			RelatedID:     relatedID,
			Status:        entity.NotificationStatusPending,
		}

		if err := d.repo.Create(ctx, n); err != nil {
			d.logger.Error("Failed to record notification",
				zap.String("recipient_id", recipientID),
				zap.Error(err))
			continue
		}

		select {
		case d.queue <- n:
		default:
			d.logger.Error("Notification queue full, dropping delivery",
				zap.Int64("notification_id", n.ID))
			d.markFailed(n.ID, "queue full")
		}
	}
}

// Close stops accepting notifications and waits for the worker to drain the
// queue
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already closed")
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()

	d.logger.Info("Notification dispatcher closed")
	return nil
}

func (d *Dispatcher) deliverLoop() {
	defer d.wg.Done()

	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n *entity.Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Sender panic recovered",
				zap.Int64("notification_id", n.ID),
				zap.Any("panic", r))
			d.markFailed(n.ID, fmt.Sprintf("sender panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, n.RecipientID, n.Title, n.Message); err != nil {
		d.logger.Error("Failed to deliver notification",
			zap.Int64("notification_id", n.ID),
			zap.String("recipient_id", n.RecipientID),
			zap.Error(err))
		d.markFailed(n.ID, err.Error())
		return
	}

	if err := d.repo.MarkSent(context.Background(), n.ID); err != nil {
		d.logger.Error("Failed to mark notification sent",
			zap.Int64("notification_id", n.ID),
			zap.Error(err))
	}
}

func (d *Dispatcher) markFailed(id int64, reason string) {
	if err := d.repo.MarkFailed(context.Background(), id, reason); err != nil {
		d.logger.Error("Failed to mark notification failed",
			zap.Int64("notification_id", id),
			zap.Error(err))
	}
}

// Verify interface compliance
var _ port.NotificationDispatcher = (*Dispatcher)(nil)
