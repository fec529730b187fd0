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

// AlertRepository implements port.AlertRepository
type AlertRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *sql.DB, logger *zap.Logger) port.AlertRepository {
	return &AlertRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new alert record
func (r *AlertRepository) Create(ctx context.Context, alert *entity.Alert) error {
	query := `
		INSERT INTO alerts (
			reporter_id, latitude, longitude, priority, description, status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		alert.ReporterID,
		alert.Latitude,
		alert.Longitude,
		alert.Priority,
		alert.Description,
		alert.Status.String(),
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create alert", zap.Error(err))
		return fmt.Errorf("failed to create alert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	alert.ID = id
	return nil
}

// GetByID retrieves an alert by ID
func (r *AlertRepository) GetByID(ctx context.Context, id int64) (*entity.Alert, error) {
	query := `
		SELECT id, reporter_id, latitude, longitude, priority, description,
			status, created_at, updated_at
		FROM alerts
		WHERE id = ?
	`

	var alert entity.Alert
	var status string

	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&alert.ID,
		&alert.ReporterID,
		&alert.Latitude,
		&alert.Longitude,
		&alert.Priority,
		&alert.Description,
		&status,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get alert by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	alert.Status = entity.AlertStatus(status)
	return &alert, nil
}

// Update updates an alert
func (r *AlertRepository) Update(ctx context.Context, alert *entity.Alert) error {
	query := `
		UPDATE alerts
		SET reporter_id = ?, latitude = ?, longitude = ?, priority = ?,
			description = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	alert.UpdatedAt = time.Now()

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		alert.ReporterID,
		alert.Latitude,
		alert.Longitude,
		alert.Priority,
		alert.Description,
		alert.Status.String(),
		alert.UpdatedAt,
		alert.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update alert", zap.Int64("id", alert.ID), zap.Error(err))
		return fmt.Errorf("failed to update alert: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.AlertRepository = (*AlertRepository)(nil)
