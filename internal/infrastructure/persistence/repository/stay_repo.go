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

// StayRepository implements port.StayRepository
type StayRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStayRepository creates a new hospital stay repository
func NewStayRepository(db *sql.DB, logger *zap.Logger) port.StayRepository {
	return &StayRepository{
		db:     db,
		logger: logger,
	}
}

const stayColumns = `id, claim_id, doctor_id, admitted_at, discharged_at, report,
	acts_count, exams_count, report_status, status, validated_by, validated_at,
	validation_notes, notes, created_at, updated_at`

// Create creates a new hospital stay record
func (r *StayRepository) Create(ctx context.Context, stay *entity.HospitalStay) error {
	query := `
		INSERT INTO hospital_stays (
			claim_id, doctor_id, admitted_at, discharged_at, report,
			acts_count, exams_count, report_status, status, validated_by,
			validated_at, validation_notes, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	stay.CreatedAt = now
	stay.UpdatedAt = now

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		stay.ClaimID,
		stay.DoctorID,
		stay.AdmittedAt,
		stay.DischargedAt,
		stay.Report,
		stay.ActsCount,
		stay.ExamsCount,
		stay.ReportStatus.String(),
		stay.Status.String(),
		stay.ValidatedBy,
		stay.ValidatedAt,
		stay.ValidationNotes,
		stay.Notes,
		stay.CreatedAt,
		stay.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create stay", zap.Int64("claim_id", stay.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create stay: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	stay.ID = id
	return nil
}

// GetByID retrieves a stay by its ID, returning nil when not found
func (r *StayRepository) GetByID(ctx context.Context, id int64) (*entity.HospitalStay, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByClaimID retrieves the stay attached to a claim, returning nil when none
// exists
func (r *StayRepository) GetByClaimID(ctx context.Context, claimID int64) (*entity.HospitalStay, error) {
	return r.getOne(ctx, "claim_id = ?", claimID)
}

func (r *StayRepository) getOne(ctx context.Context, where string, arg interface{}) (*entity.HospitalStay, error) {
	query := fmt.Sprintf(`SELECT %s FROM hospital_stays WHERE %s`, stayColumns, where)

	var stay entity.HospitalStay
	var dischargedAt, validatedAt sql.NullTime
	var validatedBy sql.NullString
	var reportStatus, status string

	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&stay.ID,
		&stay.ClaimID,
		&stay.DoctorID,
		&stay.AdmittedAt,
		&dischargedAt,
		&stay.Report,
		&stay.ActsCount,
		&stay.ExamsCount,
		&reportStatus,
		&status,
		&validatedBy,
		&validatedAt,
		&stay.ValidationNotes,
		&stay.Notes,
		&stay.CreatedAt,
		&stay.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get stay", zap.Error(err))
		return nil, fmt.Errorf("failed to get stay: %w", err)
	}

	stay.ReportStatus = entity.ReportStatus(reportStatus)
	stay.Status = entity.StayStatus(status)
	if dischargedAt.Valid {
		stay.DischargedAt = &dischargedAt.Time
	}
	if validatedBy.Valid {
		stay.ValidatedBy = &validatedBy.String
	}
	if validatedAt.Valid {
		stay.ValidatedAt = &validatedAt.Time
	}

	return &stay, nil
}

// Update updates a hospital stay
func (r *StayRepository) Update(ctx context.Context, stay *entity.HospitalStay) error {
	query := `
		UPDATE hospital_stays
		SET doctor_id = ?, admitted_at = ?, discharged_at = ?, report = ?,
			acts_count = ?, exams_count = ?, report_status = ?, status = ?,
			validated_by = ?, validated_at = ?, validation_notes = ?, notes = ?,
			updated_at = ?
		WHERE id = ?
	`

	stay.UpdatedAt = time.Now()

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		stay.DoctorID,
		stay.AdmittedAt,
		stay.DischargedAt,
		stay.Report,
		stay.ActsCount,
		stay.ExamsCount,
		stay.ReportStatus.String(),
		stay.Status.String(),
		stay.ValidatedBy,
		stay.ValidatedAt,
		stay.ValidationNotes,
		stay.Notes,
		stay.UpdatedAt,
		stay.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update stay", zap.Int64("id", stay.ID), zap.Error(err))
		return fmt.Errorf("failed to update stay: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.StayRepository = (*StayRepository)(nil)
