package service

import (
	"context"
	"fmt"
	"time"

	"github.com/medassist/claims-backoffice/internal/application/port"
	"github.com/medassist/claims-backoffice/internal/domain/entity"
)

// AlertInput carries the fields of a newly reported emergency
type AlertInput struct {
	ReporterID  string
	Latitude    float64
	Longitude   float64
	Priority    string
	Description string
}

// IntakeService handles case intake upstream of the workflow engine: alert
// creation, claim opening and hospital assignment.
type IntakeService interface {
	CreateAlert(ctx context.Context, in AlertInput) (*entity.Alert, error)
	OpenClaim(ctx context.Context, alertID, subscriptionID int64, caseAgentID, referringPhysicianID string) (*entity.Claim, error)
	AssignHospital(ctx context.Context, claimID, hospitalID int64, actor entity.Actor) (*entity.Claim, error)
}

type intakeService struct {
	alertRepo  port.AlertRepository
	claimRepo  port.ClaimRepository
	txManager  port.TransactionManager
	dispatcher port.NotificationDispatcher
	logger     Logger
}

// NewIntakeService creates a new IntakeService
func NewIntakeService(
	alertRepo port.AlertRepository,
	claimRepo port.ClaimRepository,
	txManager port.TransactionManager,
	dispatcher port.NotificationDispatcher,
	logger Logger,
) IntakeService {
	return &intakeService{
		alertRepo:  alertRepo,
		claimRepo:  claimRepo,
		txManager:  txManager,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CreateAlert implements IntakeService
func (s *intakeService) CreateAlert(ctx context.Context, in AlertInput) (*entity.Alert, error) {
	alert := &entity.Alert{
		ReporterID:  in.ReporterID,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Priority:    in.Priority,
		Description: in.Description,
		Status:      entity.AlertStatusOpen,
		CreatedAt:   time.Now(),
	}

	if err := s.alertRepo.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}

	s.logger.Info("Alert created", "alert_id", alert.ID, "reporter_id", in.ReporterID, "priority", in.Priority)
	return alert, nil
}

// OpenClaim implements IntakeService. At most one claim exists per alert;
// opening a claim for an alert that already has one returns the existing
// claim (idempotency).
func (s *intakeService) OpenClaim(ctx context.Context, alertID, subscriptionID int64, caseAgentID, referringPhysicianID string) (*entity.Claim, error) {
	var claim *entity.Claim

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		alert, err := s.alertRepo.GetByID(txCtx, alertID)
		if err != nil {
			return fmt.Errorf("get alert: %w", err)
		}
		if alert == nil {
			return fmt.Errorf("%w: alert %d", ErrNotFound, alertID)
		}

		existing, err := s.claimRepo.GetByAlertID(txCtx, alertID)
		if err != nil {
			return fmt.Errorf("get claim: %w", err)
		}
		if existing != nil {
			claim = existing
			return nil
		}

		claim = &entity.Claim{
			AlertID:              alertID,
			SubscriptionID:       subscriptionID,
			Status:               entity.ClaimStatusInProgress,
			CaseAgentID:          caseAgentID,
			ReferringPhysicianID: referringPhysicianID,
		}
		return s.claimRepo.Create(txCtx, claim)
	})
	if err != nil {
		return nil, err
	}

	return claim, nil
}

// AssignHospital implements IntakeService
func (s *intakeService) AssignHospital(ctx context.Context, claimID, hospitalID int64, actor entity.Actor) (*entity.Claim, error) {
	if !actor.HasAnyRole(entity.RoleSinistre, entity.RoleMedical) {
		return nil, fmt.Errorf("%w: role %s cannot assign hospitals", ErrUnauthorized, actor.Role)
	}

	var claim *entity.Claim

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		claim, err = s.claimRepo.GetByID(txCtx, claimID)
		if err != nil {
			return fmt.Errorf("get claim: %w", err)
		}
		if claim == nil {
			return fmt.Errorf("%w: claim %d", ErrNotFound, claimID)
		}
		if claim.Status == entity.ClaimStatusCancelled {
			return fmt.Errorf("%w: claim %d is cancelled", ErrInvalidTransition, claimID)
		}

		claim.HospitalID = &hospitalID
		return s.claimRepo.Update(txCtx, claim)
	})
	if err != nil {
		return nil, err
	}

	if claim.ReferringPhysicianID != "" {
		s.dispatcher.Notify(ctx, []string{claim.ReferringPhysicianID}, "Hospital activated",
			fmt.Sprintf("Claim %d: patient oriented to hospital %d", claimID, hospitalID), "claim", claimID)
	}
	return claim, nil
}
