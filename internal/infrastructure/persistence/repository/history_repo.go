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

// InvoiceHistoryRepository implements port.InvoiceHistoryRepository
type InvoiceHistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceHistoryRepository creates a new invoice history repository
func NewInvoiceHistoryRepository(db *sql.DB, logger *zap.Logger) port.InvoiceHistoryRepository {
	return &InvoiceHistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a new audit record. History rows are never updated or
// deleted.
func (r *InvoiceHistoryRepository) Create(ctx context.Context, entry *entity.InvoiceHistoryEntry) error {
	query := `
		INSERT INTO invoice_history (
			invoice_id, action, previous_status, new_status,
			previous_stage, new_stage, actor_id, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		entry.InvoiceID,
		entry.Action,
		entry.PreviousStatus.String(),
		entry.NewStatus.String(),
		entry.PreviousStage,
		entry.NewStage,
		entry.ActorID,
		entry.Notes,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create history entry", zap.Int64("invoice_id", entry.InvoiceID), zap.Error(err))
		return fmt.Errorf("failed to create history entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// GetByInvoiceID retrieves all audit records of an invoice in chronological
// order
func (r *InvoiceHistoryRepository) GetByInvoiceID(ctx context.Context, invoiceID int64) ([]*entity.InvoiceHistoryEntry, error) {
	query := `
		SELECT id, invoice_id, action, previous_status, new_status,
			previous_stage, new_stage, actor_id, notes, created_at
		FROM invoice_history
		WHERE invoice_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, invoiceID)
	if err != nil {
		r.logger.Error("Failed to get invoice history", zap.Int64("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice history: %w", err)
	}
	defer rows.Close()

	var entries []*entity.InvoiceHistoryEntry
	for rows.Next() {
		var entry entity.InvoiceHistoryEntry
		var previousStatus, newStatus string

		err := rows.Scan(
			&entry.ID,
			&entry.InvoiceID,
			&entry.Action,
			&previousStatus,
			&newStatus,
			&entry.PreviousStage,
			&entry.NewStage,
			&entry.ActorID,
			&entry.Notes,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		entry.PreviousStatus = entity.InvoiceStatus(previousStatus)
		entry.NewStatus = entity.InvoiceStatus(newStatus)
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// Verify interface compliance
var _ port.InvoiceHistoryRepository = (*InvoiceHistoryRepository)(nil)
