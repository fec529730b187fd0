package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medassist/claims-backoffice/internal/application/port"
	"github.com/medassist/claims-backoffice/internal/domain/catalog"
	"github.com/medassist/claims-backoffice/internal/domain/entity"
)

// Detail keys written by manual transitions
const (
	detailLastNotes        = "last_notes"
	detailLastTransitionAt = "last_transition_at"
)

// ClaimWorkflowService reconciles a claim's persisted steps against the step
// catalog and exposes manual step transitions.
type ClaimWorkflowService interface {
	// Reconcile brings the claim's steps in line with the catalog and
	// returns them sorted by order. Safe to call on every read path.
	Reconcile(ctx context.Context, claimID int64) ([]*entity.ProcessStep, error)

	// ApplyManualTransition sets the status of a manually driven step and
	// applies cascading business rules.
	ApplyManualTransition(ctx context.Context, claimID int64, stepKey string, status entity.StepStatus, actor entity.Actor, notes string) (*entity.ProcessStep, error)

	// VerifyUrgency confirms the medical urgency of the claim and issues the
	// definitive claim number. Idempotent: a claim that already carries a
	// number is returned unchanged.
	VerifyUrgency(ctx context.Context, claimID int64, actor entity.Actor) (*entity.Claim, error)
}

type claimWorkflowService struct {
	claimRepo   port.ClaimRepository
	alertRepo   port.AlertRepository
	stepRepo    port.StepRepository
	stayRepo    port.StayRepository
	invoiceRepo port.InvoiceRepository
	rules       *BusinessRuleEngine
	txManager   port.TransactionManager
	dispatcher  port.NotificationDispatcher
	logger      Logger
}

// NewClaimWorkflowService creates a new ClaimWorkflowService
func NewClaimWorkflowService(
	claimRepo port.ClaimRepository,
	alertRepo port.AlertRepository,
	stepRepo port.StepRepository,
	stayRepo port.StayRepository,
	invoiceRepo port.InvoiceRepository,
	rules *BusinessRuleEngine,
	txManager port.TransactionManager,
	dispatcher port.NotificationDispatcher,
	logger Logger,
) ClaimWorkflowService {
	return &claimWorkflowService{
		claimRepo:   claimRepo,
		alertRepo:   alertRepo,
		stepRepo:    stepRepo,
		stayRepo:    stayRepo,
		invoiceRepo: invoiceRepo,
		rules:       rules,
		txManager:   txManager,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// loadInputs loads the claim and its related entities. Alert, stay and
// invoice may legitimately be absent.
func (s *claimWorkflowService) loadInputs(ctx context.Context, claimID int64) (catalog.Inputs, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return catalog.Inputs{}, fmt.Errorf("get claim: %w", err)
	}
	if claim == nil {
		return catalog.Inputs{}, fmt.Errorf("%w: claim %d", ErrNotFound, claimID)
	}

	alert, err := s.alertRepo.GetByID(ctx, claim.AlertID)
	if err != nil {
		return catalog.Inputs{}, fmt.Errorf("get alert: %w", err)
	}

	stay, err := s.stayRepo.GetByClaimID(ctx, claimID)
	if err != nil {
		return catalog.Inputs{}, fmt.Errorf("get stay: %w", err)
	}

	var invoice *entity.Invoice
	if stay != nil {
		invoice, err = s.invoiceRepo.GetByStayID(ctx, stay.ID)
		if err != nil {
			return catalog.Inputs{}, fmt.Errorf("get invoice: %w", err)
		}
	}

	return catalog.Inputs{Claim: claim, Alert: alert, Stay: stay, Invoice: invoice}, nil
}

// reconcileSteps creates missing steps, refreshes auto-synced ones and keeps
// display metadata mirrored to the catalog. Returns the full step set sorted
// by order and whether any persisted change occurred. Must run inside a
// transaction.
func (s *claimWorkflowService) reconcileSteps(ctx context.Context, in catalog.Inputs) ([]*entity.ProcessStep, bool, error) {
	existing, err := s.stepRepo.GetByClaimID(ctx, in.Claim.ID)
	if err != nil {
		return nil, false, fmt.Errorf("get steps: %w", err)
	}

	byKey := make(map[string]*entity.ProcessStep, len(existing))
	for _, st := range existing {
		byKey[st.Key] = st
	}

	modified := false
	steps := make([]*entity.ProcessStep, 0, catalog.Len())

	for _, def := range catalog.Steps() {
		st, ok := byKey[def.Key]
		if !ok {
			status, completedAt := catalog.Resolve(def.Key, in)
			st = &entity.ProcessStep{
				ClaimID:     in.Claim.ID,
				Key:         def.Key,
				Order:       def.Order,
				Title:       def.Title,
				Description: def.Description,
				Status:      status,
				CompletedAt: completedAt,
				Detail:      entity.StepDetail{},
			}
			if err := s.stepRepo.Create(ctx, st); err != nil {
				return nil, false, fmt.Errorf("create step %s: %w", def.Key, err)
			}
			modified = true
			steps = append(steps, st)
			continue
		}

		changed := false
		if st.Order != def.Order || st.Title != def.Title || st.Description != def.Description {
			st.Order = def.Order
			st.Title = def.Title
			st.Description = def.Description
			changed = true
		}

		if def.AutoSync {
			status, completedAt := catalog.Resolve(def.Key, in)
			if status != st.Status {
				st.Status = status
				st.CompletedAt = completedAt
				changed = true
			}
		}

		if changed {
			if err := s.stepRepo.Update(ctx, st); err != nil {
				return nil, false, fmt.Errorf("update step %s: %w", def.Key, err)
			}
			modified = true
		}
		steps = append(steps, st)
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
	return steps, modified, nil
}

// Reconcile implements ClaimWorkflowService
func (s *claimWorkflowService) Reconcile(ctx context.Context, claimID int64) ([]*entity.ProcessStep, error) {
	var steps []*entity.ProcessStep

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		in, err := s.loadInputs(txCtx, claimID)
		if err != nil {
			return err
		}
		steps, _, err = s.reconcileSteps(txCtx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	return steps, nil
}

// ApplyManualTransition implements ClaimWorkflowService
func (s *claimWorkflowService) ApplyManualTransition(ctx context.Context, claimID int64, stepKey string, status entity.StepStatus, actor entity.Actor, notes string) (*entity.ProcessStep, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown step status %q", ErrInvalidTransition, status)
	}
	if _, ok := catalog.ByKey(stepKey); !ok {
		return nil, fmt.Errorf("%w: step %q", ErrNotFound, stepKey)
	}

	var (
		target  *entity.ProcessStep
		changed bool
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		in, err := s.loadInputs(txCtx, claimID)
		if err != nil {
			return err
		}

		steps, _, err := s.reconcileSteps(txCtx, in)
		if err != nil {
			return err
		}

		for _, st := range steps {
			if st.Key == stepKey {
				target = st
				break
			}
		}
		if target == nil {
			// Defensive: reconcile guarantees a complete step set.
			return fmt.Errorf("%w: step %q on claim %d", ErrNotFound, stepKey, claimID)
		}

		now := time.Now()

		// Retried submissions with the same target status and notes only
		// refresh the transition timestamp.
		if target.Status == status && target.Detail[detailLastNotes] == notes {
			target.Detail = target.Detail.Merge(entity.StepDetail{
				detailLastTransitionAt: now.Format(time.RFC3339),
			})
			return s.stepRepo.Update(txCtx, target)
		}

		target.Status = status
		if status == entity.StepStatusCompleted {
			target.CompletedAt = &now
		} else {
			target.CompletedAt = nil
		}
		target.ActorID = actor.ID
		detail := entity.StepDetail{detailLastTransitionAt: now.Format(time.RFC3339)}
		if notes != "" {
			detail[detailLastNotes] = notes
		}
		target.Detail = target.Detail.Merge(detail)

		if err := s.stepRepo.Update(txCtx, target); err != nil {
			return fmt.Errorf("update step: %w", err)
		}
		changed = true

		if s.rules.Apply(in.Claim, in.Alert, stepKey, status) {
			if err := s.claimRepo.Update(txCtx, in.Claim); err != nil {
				return fmt.Errorf("update claim: %w", err)
			}
			if in.Alert != nil {
				if err := s.alertRepo.Update(txCtx, in.Alert); err != nil {
					return fmt.Errorf("update alert: %w", err)
				}
			}
			// The cascade may change auto-synced statuses; persist the
			// corrected steps in the same transaction.
			if _, _, err := s.reconcileSteps(txCtx, in); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.notifyStepChanged(ctx, claimID, target)
	}

	return target, nil
}

// VerifyUrgency implements ClaimWorkflowService
func (s *claimWorkflowService) VerifyUrgency(ctx context.Context, claimID int64, actor entity.Actor) (*entity.Claim, error) {
	if !actor.HasAnyRole(entity.RoleMedical) {
		return nil, fmt.Errorf("%w: role %s cannot verify urgency", ErrUnauthorized, actor.Role)
	}

	var claim *entity.Claim
	issued := false

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		in, err := s.loadInputs(txCtx, claimID)
		if err != nil {
			return err
		}
		claim = in.Claim

		if claim.Status == entity.ClaimStatusCancelled {
			return fmt.Errorf("%w: claim %d is cancelled", ErrInvalidTransition, claimID)
		}
		if claim.HasNumber() {
			return nil
		}

		number := newClaimNumber(time.Now())
		if err := claim.AssignNumber(number); err != nil {
			return err
		}
		if err := s.claimRepo.Update(txCtx, claim); err != nil {
			return fmt.Errorf("update claim: %w", err)
		}
		issued = true

		if in.Alert != nil && in.Alert.Status == entity.AlertStatusOpen {
			in.Alert.Status = entity.AlertStatusInProgress
			if err := s.alertRepo.Update(txCtx, in.Alert); err != nil {
				return fmt.Errorf("update alert: %w", err)
			}
		}

		_, _, err = s.reconcileSteps(txCtx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	if issued {
		s.logger.Info("Claim number issued", "claim_id", claimID, "number", *claim.ClaimNumber)
		s.dispatcher.Notify(ctx, []string{claim.CaseAgentID}, "Urgency verified",
			fmt.Sprintf("Claim %s: urgency verified, claim number issued", *claim.ClaimNumber), "claim", claim.ID)
	}

	return claim, nil
}

func (s *claimWorkflowService) notifyStepChanged(ctx context.Context, claimID int64, step *entity.ProcessStep) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil || claim == nil || claim.CaseAgentID == "" {
		return
	}
	s.dispatcher.Notify(ctx, []string{claim.CaseAgentID}, "Workflow step updated",
		fmt.Sprintf("Step %q moved to %s", step.Title, step.Status), "step", step.ID)
}

// newClaimNumber builds a human-readable claim number, e.g. SIN-2026-3F1A9C04
func newClaimNumber(now time.Time) string {
	fragment := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("SIN-%d-%s", now.Year(), fragment)
}
