package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medassist/claims-backoffice/internal/application/port"
	"github.com/medassist/claims-backoffice/internal/domain/entity"
	"github.com/medassist/claims-backoffice/internal/infrastructure/persistence/sqlite"
)

// StepRepository implements port.StepRepository
type StepRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStepRepository creates a new process step repository
func NewStepRepository(db *sql.DB, logger *zap.Logger) port.StepRepository {
	return &StepRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new process step record
func (r *StepRepository) Create(ctx context.Context, step *entity.ProcessStep) error {
	query := `
		INSERT INTO process_steps (
			claim_id, step_key, step_order, title, description, status,
			completed_at, actor_id, detail, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	detail, err := marshalDetail(step.Detail)
	if err != nil {
		return err
	}

	now := time.Now()
	step.CreatedAt = now
	step.UpdatedAt = now

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		step.ClaimID,
		step.Key,
		step.Order,
		step.Title,
		step.Description,
		step.Status.String(),
		step.CompletedAt,
		step.ActorID,
		detail,
		step.CreatedAt,
		step.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create step", zap.String("key", step.Key), zap.Error(err))
		return fmt.Errorf("failed to create step: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	step.ID = id
	return nil
}

// GetByClaimID retrieves all steps of a claim ordered by step order
func (r *StepRepository) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ProcessStep, error) {
	query := `
		SELECT id, claim_id, step_key, step_order, title, description, status,
			completed_at, actor_id, detail, created_at, updated_at
		FROM process_steps
		WHERE claim_id = ?
		ORDER BY step_order ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to get steps by claim ID", zap.Int64("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}
	defer rows.Close()

	var steps []*entity.ProcessStep
	for rows.Next() {
		var step entity.ProcessStep
		var completedAt sql.NullTime
		var status, detail string

		err := rows.Scan(
			&step.ID,
			&step.ClaimID,
			&step.Key,
			&step.Order,
			&step.Title,
			&step.Description,
			&status,
			&completedAt,
			&step.ActorID,
			&detail,
			&step.CreatedAt,
			&step.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		step.Status = entity.StepStatus(status)
		if completedAt.Valid {
			step.CompletedAt = &completedAt.Time
		}
		if step.Detail, err = unmarshalDetail(detail); err != nil {
			return nil, err
		}

		steps = append(steps, &step)
	}

	return steps, rows.Err()
}

// Update updates a process step
func (r *StepRepository) Update(ctx context.Context, step *entity.ProcessStep) error {
	query := `
		UPDATE process_steps
		SET step_order = ?, title = ?, description = ?, status = ?,
			completed_at = ?, actor_id = ?, detail = ?, updated_at = ?
		WHERE id = ?
	`

	detail, err := marshalDetail(step.Detail)
	if err != nil {
		return err
	}

	step.UpdatedAt = time.Now()

	_, err = sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		step.Order,
		step.Title,
		step.Description,
		step.Status.String(),
		step.CompletedAt,
		step.ActorID,
		detail,
		step.UpdatedAt,
		step.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update step", zap.Int64("id", step.ID), zap.Error(err))
		return fmt.Errorf("failed to update step: %w", err)
	}

	return nil
}

func marshalDetail(d entity.StepDetail) (string, error) {
	if len(d) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to marshal step detail: %w", err)
	}
	return string(raw), nil
}

func unmarshalDetail(raw string) (entity.StepDetail, error) {
	d := entity.StepDetail{}
	if raw == "" {
		return d, nil
	}
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step detail: %w", err)
	}
	return d, nil
}

// Verify interface compliance
var _ port.StepRepository = (*StepRepository)(nil)
