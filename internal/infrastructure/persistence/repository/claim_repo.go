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

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sql.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new claim record
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	query := `
		INSERT INTO claims (
			alert_id, subscription_id, hospital_id, claim_number, status,
			case_agent_id, referring_physician_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	claim.CreatedAt = now
	claim.UpdatedAt = now

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		claim.AlertID,
		claim.SubscriptionID,
		claim.HospitalID,
		claim.ClaimNumber,
		claim.Status.String(),
		claim.CaseAgentID,
		claim.ReferringPhysicianID,
		claim.CreatedAt,
		claim.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create claim", zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	claim.ID = id
	return nil
}

// GetByID retrieves a claim by ID
func (r *ClaimRepository) GetByID(ctx context.Context, id int64) (*entity.Claim, error) {
	return r.getOne(ctx, "WHERE id = ?", id)
}

// GetByAlertID retrieves the claim opened for an alert
func (r *ClaimRepository) GetByAlertID(ctx context.Context, alertID int64) (*entity.Claim, error) {
	return r.getOne(ctx, "WHERE alert_id = ?", alertID)
}

func (r *ClaimRepository) getOne(ctx context.Context, where string, arg interface{}) (*entity.Claim, error) {
	query := `
		SELECT id, alert_id, subscription_id, hospital_id, claim_number, status,
			case_agent_id, referring_physician_id, created_at, updated_at
		FROM claims ` + where

	var claim entity.Claim
	var hospitalID sql.NullInt64
	var claimNumber sql.NullString
	var status string

	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&claim.ID,
		&claim.AlertID,
		&claim.SubscriptionID,
		&hospitalID,
		&claimNumber,
		&status,
		&claim.CaseAgentID,
		&claim.ReferringPhysicianID,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim", zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	if hospitalID.Valid {
		claim.HospitalID = &hospitalID.Int64
	}
	if claimNumber.Valid {
		claim.ClaimNumber = &claimNumber.String
	}
	claim.Status = entity.ClaimStatus(status)

	return &claim, nil
}

// Update updates a claim
func (r *ClaimRepository) Update(ctx context.Context, claim *entity.Claim) error {
	query := `
		UPDATE claims
		SET subscription_id = ?, hospital_id = ?, claim_number = ?, status = ?,
			case_agent_id = ?, referring_physician_id = ?, updated_at = ?
		WHERE id = ?
	`

	claim.UpdatedAt = time.Now()

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		claim.SubscriptionID,
		claim.HospitalID,
		claim.ClaimNumber,
		claim.Status.String(),
		claim.CaseAgentID,
		claim.ReferringPhysicianID,
		claim.UpdatedAt,
		claim.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update claim", zap.Int64("id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to update claim: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.ClaimRepository = (*ClaimRepository)(nil)
