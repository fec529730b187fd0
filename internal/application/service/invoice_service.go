package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medassist/claims-backoffice/internal/application/port"
	"github.com/medassist/claims-backoffice/internal/domain/entity"
	"github.com/medassist/claims-backoffice/internal/domain/workflow"
)

// Invoice pipeline triggers
const (
	triggerApproveStage workflow.Trigger = "APPROVE_STAGE"
	triggerRejectStage  workflow.Trigger = "REJECT_STAGE"
	triggerMarkPaid     workflow.Trigger = "MARK_PAID"
)

// stageRoles gates each pipeline stage by actor role. Admin passes every gate.
var stageRoles = map[entity.Stage][]entity.Role{
	entity.StageMedical:  {entity.RoleMedical},
	entity.StageSinistre: {entity.RoleSinistre},
	entity.StageCompta:   {entity.RoleCompta},
}

// pendingStatusFor maps each stage to the overall status in which it is the
// stage currently awaiting decision.
var pendingStatusFor = map[entity.Stage]entity.InvoiceStatus{
	entity.StageMedical:  entity.InvoiceStatusPendingMedical,
	entity.StageSinistre: entity.InvoiceStatusPendingSinistre,
	entity.StageCompta:   entity.InvoiceStatusPendingCompta,
}

// nextStage points each stage to its successor in the pipeline
var nextStage = map[entity.Stage]entity.Stage{
	entity.StageMedical:  entity.StageSinistre,
	entity.StageSinistre: entity.StageCompta,
}

// InvoiceApprovalService drives the sequential three-stage invoice approval
// pipeline (medical → claims pole → accounting) with role-gated transitions
// and an append-only audit trail.
type InvoiceApprovalService interface {
	DecideStage(ctx context.Context, invoiceID int64, stage entity.Stage, actor entity.Actor, approve bool, notes string) (*entity.Invoice, error)
	MarkPaid(ctx context.Context, invoiceID int64, actor entity.Actor) (*entity.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID int64) (*entity.Invoice, error)
	GetHistory(ctx context.Context, invoiceID int64) ([]*entity.InvoiceHistoryEntry, error)
}

type invoiceApprovalService struct {
	invoiceRepo port.InvoiceRepository
	historyRepo port.InvoiceHistoryRepository
	stayRepo    port.StayRepository
	claimRepo   port.ClaimRepository
	alertRepo   port.AlertRepository
	txManager   port.TransactionManager
	dispatcher  port.NotificationDispatcher
	machine     workflow.StateMachineBuilder
	logger      Logger
}

// NewInvoiceApprovalService creates a new InvoiceApprovalService
func NewInvoiceApprovalService(
	invoiceRepo port.InvoiceRepository,
	historyRepo port.InvoiceHistoryRepository,
	stayRepo port.StayRepository,
	claimRepo port.ClaimRepository,
	alertRepo port.AlertRepository,
	txManager port.TransactionManager,
	dispatcher port.NotificationDispatcher,
	logger Logger,
) InvoiceApprovalService {
	return &invoiceApprovalService{
		invoiceRepo: invoiceRepo,
		historyRepo: historyRepo,
		stayRepo:    stayRepo,
		claimRepo:   claimRepo,
		alertRepo:   alertRepo,
		txManager:   txManager,
		dispatcher:  dispatcher,
		machine:     newInvoiceMachine(),
		logger:      logger,
	}
}

// newInvoiceMachine configures the legal-transition table of the pipeline.
// Rejection is possible at every stage and terminal.
func newInvoiceMachine() workflow.StateMachineBuilder {
	b := workflow.NewBuilder()

	b.Configure(invoiceState(entity.InvoiceStatusPendingMedical)).
		Permit(triggerApproveStage, invoiceState(entity.InvoiceStatusPendingSinistre)).
		Permit(triggerRejectStage, invoiceState(entity.InvoiceStatusRejected))

	b.Configure(invoiceState(entity.InvoiceStatusPendingSinistre)).
		Permit(triggerApproveStage, invoiceState(entity.InvoiceStatusPendingCompta)).
		Permit(triggerRejectStage, invoiceState(entity.InvoiceStatusRejected))

	b.Configure(invoiceState(entity.InvoiceStatusPendingCompta)).
		Permit(triggerApproveStage, invoiceState(entity.InvoiceStatusValidated)).
		Permit(triggerRejectStage, invoiceState(entity.InvoiceStatusRejected))

	b.Configure(invoiceState(entity.InvoiceStatusValidated)).
		Permit(triggerMarkPaid, invoiceState(entity.InvoiceStatusPaid))

	b.Terminal(invoiceState(entity.InvoiceStatusRejected))
	b.Terminal(invoiceState(entity.InvoiceStatusPaid))

	return b
}

func invoiceState(s entity.InvoiceStatus) workflow.State {
	return workflow.State(s)
}

func (s *invoiceApprovalService) fire(ctx context.Context, invoice *entity.Invoice, trigger workflow.Trigger) error {
	m, err := s.machine.Build(invoiceState(invoice.Status))
	if err != nil {
		return fmt.Errorf("%w: invoice %d has status %q", ErrInvalidTransition, invoice.ID, invoice.Status)
	}
	if err := m.Fire(ctx, trigger); err != nil {
		if errors.Is(err, workflow.ErrInvalidTransition) {
			return fmt.Errorf("%w: %s from status %s", ErrInvalidTransition, trigger, invoice.Status)
		}
		return err
	}
	invoice.Status = entity.InvoiceStatus(m.State())
	return nil
}

// DecideStage implements InvoiceApprovalService. All conditions are checked
// before any write: role gate, invoice existence, pipeline position and
// repeat decisions.
func (s *invoiceApprovalService) DecideStage(ctx context.Context, invoiceID int64, stage entity.Stage, actor entity.Actor, approve bool, notes string) (*entity.Invoice, error) {
	if !stage.IsValid() {
		return nil, fmt.Errorf("%w: unknown stage %q", ErrInvalidTransition, stage)
	}
	if !actor.HasAnyRole(stageRoles[stage]...) {
		return nil, fmt.Errorf("%w: role %s cannot decide the %s stage", ErrUnauthorized, actor.Role, stage)
	}

	var (
		invoice       *entity.Invoice
		alertResolved bool
		caseAgentID   string
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		invoice, err = s.getInvoice(txCtx, invoiceID)
		if err != nil {
			return err
		}

		if invoice.Status != pendingStatusFor[stage] {
			if invoice.DecisionFor(stage).IsDecided() {
				return fmt.Errorf("%w: %s on invoice %d", ErrStageAlreadyDecided, stage, invoiceID)
			}
			return fmt.Errorf("%w: %s stage cannot be decided while invoice is %s", ErrInvalidTransition, stage, invoice.Status)
		}
		if invoice.DecisionFor(stage).IsDecided() {
			return fmt.Errorf("%w: %s on invoice %d", ErrStageAlreadyDecided, stage, invoiceID)
		}

		previousStatus := invoice.Status

		trigger := triggerApproveStage
		decision := entity.DecisionApproved
		if !approve {
			trigger = triggerRejectStage
			decision = entity.DecisionRejected
		}
		if err := s.fire(txCtx, invoice, trigger); err != nil {
			return err
		}

		now := time.Now()
		rec := invoice.DecisionFor(stage)
		rec.Value = &decision
		rec.ActorID = actor.ID
		rec.DecidedAt = &now
		rec.Notes = notes

		if approve {
			if next, ok := nextStage[stage]; ok {
				pending := entity.DecisionPending
				invoice.DecisionFor(next).Value = &pending
			}
		} else {
			// Rejection freezes the pipeline: not-yet-reached stages are
			// cleared no matter how far it had progressed.
			for st := nextStage[stage]; st != ""; st = nextStage[st] {
				*invoice.DecisionFor(st) = entity.StageDecision{}
			}
		}

		if err := s.invoiceRepo.Update(txCtx, invoice); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		action := fmt.Sprintf("stage_%s_approved", stage)
		if !approve {
			action = fmt.Sprintf("stage_%s_rejected", stage)
		}
		entry := &entity.InvoiceHistoryEntry{
			InvoiceID:      invoice.ID,
			Action:         action,
			PreviousStatus: previousStatus,
			NewStatus:      invoice.Status,
			PreviousStage:  entity.StageLabel(previousStatus),
			NewStage:       entity.StageLabel(invoice.Status),
			ActorID:        actor.ID,
			Notes:          notes,
		}
		if err := s.historyRepo.Create(txCtx, entry); err != nil {
			return fmt.Errorf("create history: %w", err)
		}

		// Accounting approval closes the loop on the originating alert.
		// This fires at most once: the stage cannot be re-decided.
		if approve && stage == entity.StageCompta {
			alertResolved, caseAgentID, err = s.resolveLinkedAlert(txCtx, invoice)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice stage decided",
		"invoice_id", invoiceID, "stage", stage.String(), "approve", approve, "status", invoice.Status.String())

	if alertResolved && caseAgentID != "" {
		s.dispatcher.Notify(ctx, []string{caseAgentID}, "Claim resolved",
			fmt.Sprintf("Invoice %s fully validated, alert resolved", invoice.Number), "invoice", invoice.ID)
	}

	return invoice, nil
}

// resolveLinkedAlert marks the alert behind the invoice's claim as resolved,
// if it is not already. Reports whether the alert changed and the claim's
// case agent for notification.
func (s *invoiceApprovalService) resolveLinkedAlert(ctx context.Context, invoice *entity.Invoice) (bool, string, error) {
	stay, err := s.stayRepo.GetByID(ctx, invoice.StayID)
	if err != nil {
		return false, "", fmt.Errorf("get stay: %w", err)
	}
	if stay == nil {
		return false, "", nil
	}

	claim, err := s.claimRepo.GetByID(ctx, stay.ClaimID)
	if err != nil {
		return false, "", fmt.Errorf("get claim: %w", err)
	}
	if claim == nil {
		return false, "", nil
	}

	alert, err := s.alertRepo.GetByID(ctx, claim.AlertID)
	if err != nil {
		return false, "", fmt.Errorf("get alert: %w", err)
	}
	if alert == nil || alert.Status == entity.AlertStatusResolved {
		return false, claim.CaseAgentID, nil
	}

	alert.Status = entity.AlertStatusResolved
	if err := s.alertRepo.Update(ctx, alert); err != nil {
		return false, "", fmt.Errorf("update alert: %w", err)
	}
	return true, claim.CaseAgentID, nil
}

// MarkPaid implements InvoiceApprovalService. Payment is recorded by the
// accounting pole once the pipeline has fully validated the invoice.
func (s *invoiceApprovalService) MarkPaid(ctx context.Context, invoiceID int64, actor entity.Actor) (*entity.Invoice, error) {
	if !actor.HasAnyRole(entity.RoleCompta) {
		return nil, fmt.Errorf("%w: role %s cannot record payments", ErrUnauthorized, actor.Role)
	}

	var invoice *entity.Invoice

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		invoice, err = s.getInvoice(txCtx, invoiceID)
		if err != nil {
			return err
		}

		previousStatus := invoice.Status
		if err := s.fire(txCtx, invoice, triggerMarkPaid); err != nil {
			return err
		}

		if err := s.invoiceRepo.Update(txCtx, invoice); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		entry := &entity.InvoiceHistoryEntry{
			InvoiceID:      invoice.ID,
			Action:         "invoice_paid",
			PreviousStatus: previousStatus,
			NewStatus:      invoice.Status,
			PreviousStage:  entity.StageLabel(previousStatus),
			NewStage:       entity.StageLabel(invoice.Status),
			ActorID:        actor.ID,
		}
		return s.historyRepo.Create(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	return invoice, nil
}

// GetInvoice implements InvoiceApprovalService
func (s *invoiceApprovalService) GetInvoice(ctx context.Context, invoiceID int64) (*entity.Invoice, error) {
	return s.getInvoice(ctx, invoiceID)
}

// GetHistory implements InvoiceApprovalService. Entries are ordered by
// creation time ascending.
func (s *invoiceApprovalService) GetHistory(ctx context.Context, invoiceID int64) ([]*entity.InvoiceHistoryEntry, error) {
	if _, err := s.getInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}
	entries, err := s.historyRepo.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return entries, nil
}

func (s *invoiceApprovalService) getInvoice(ctx context.Context, invoiceID int64) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if invoice == nil {
		return nil, fmt.Errorf("%w: invoice %d", ErrNotFound, invoiceID)
	}
	return invoice, nil
}
