package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medassist/claims-backoffice/internal/application/port"
	"github.com/medassist/claims-backoffice/internal/domain/entity"
	"github.com/medassist/claims-backoffice/internal/domain/workflow"
)

// Stay lifecycle triggers
const (
	triggerSubmitReport workflow.Trigger = "SUBMIT_REPORT"
	triggerApproveStay  workflow.Trigger = "APPROVE"
	triggerRejectStay   workflow.Trigger = "REJECT"
	triggerIssueInvoice workflow.Trigger = "ISSUE_INVOICE"
)

// Default pricing for derived invoice lines, in cents
const (
	dayRateCents  int64 = 85_000
	actRateCents  int64 = 12_500
	examRateCents int64 = 7_500
)

// ReportFields carries the medical report submitted by the assigned doctor
type ReportFields struct {
	Report     string
	ActsCount  int
	ExamsCount int

	// Terminate discharges the patient along with the report submission
	Terminate bool
}

// HospitalStayService drives the hospital stay lifecycle:
// in_progress → awaiting_validation → validated/rejected → invoiced.
type HospitalStayService interface {
	Create(ctx context.Context, claimID int64, doctorID, notes string) (*entity.HospitalStay, error)
	SubmitReport(ctx context.Context, stayID int64, doctorID string, fields ReportFields) (*entity.HospitalStay, error)
	Validate(ctx context.Context, stayID int64, referentID string, approve bool, notes string) (*entity.HospitalStay, error)
	IssueInvoice(ctx context.Context, stayID int64, actor entity.Actor, taxRate float64, customLines []entity.InvoiceLine) (*entity.HospitalStay, *entity.Invoice, error)
}

type hospitalStayService struct {
	stayRepo    port.StayRepository
	claimRepo   port.ClaimRepository
	invoiceRepo port.InvoiceRepository
	historyRepo port.InvoiceHistoryRepository
	txManager   port.TransactionManager
	dispatcher  port.NotificationDispatcher
	machine     workflow.StateMachineBuilder
	logger      Logger
}

// NewHospitalStayService creates a new HospitalStayService
func NewHospitalStayService(
	stayRepo port.StayRepository,
	claimRepo port.ClaimRepository,
	invoiceRepo port.InvoiceRepository,
	historyRepo port.InvoiceHistoryRepository,
	txManager port.TransactionManager,
	dispatcher port.NotificationDispatcher,
	logger Logger,
) HospitalStayService {
	return &hospitalStayService{
		stayRepo:    stayRepo,
		claimRepo:   claimRepo,
		invoiceRepo: invoiceRepo,
		historyRepo: historyRepo,
		txManager:   txManager,
		dispatcher:  dispatcher,
		machine:     newStayMachine(),
		logger:      logger,
	}
}

// newStayMachine configures the legal-transition table of the stay lifecycle
func newStayMachine() workflow.StateMachineBuilder {
	b := workflow.NewBuilder()

	b.Configure(stayState(entity.StayStatusInProgress)).
		Permit(triggerSubmitReport, stayState(entity.StayStatusAwaitingValidation))

	// A doctor may re-submit while validation is pending or after a rejection.
	b.Configure(stayState(entity.StayStatusAwaitingValidation)).
		Permit(triggerSubmitReport, stayState(entity.StayStatusAwaitingValidation)).
		Permit(triggerApproveStay, stayState(entity.StayStatusValidated)).
		Permit(triggerRejectStay, stayState(entity.StayStatusRejected))

	b.Configure(stayState(entity.StayStatusRejected)).
		Permit(triggerSubmitReport, stayState(entity.StayStatusAwaitingValidation))

	b.Configure(stayState(entity.StayStatusValidated)).
		Permit(triggerIssueInvoice, stayState(entity.StayStatusInvoiced))

	b.Terminal(stayState(entity.StayStatusInvoiced))

	return b
}

func stayState(s entity.StayStatus) workflow.State {
	return workflow.State(s)
}

// fire validates and applies one lifecycle transition on the stay
func (s *hospitalStayService) fire(ctx context.Context, stay *entity.HospitalStay, trigger workflow.Trigger) error {
	m, err := s.machine.Build(stayState(stay.Status))
	if err != nil {
		return fmt.Errorf("%w: stay %d has status %q", ErrInvalidTransition, stay.ID, stay.Status)
	}
	if err := m.Fire(ctx, trigger); err != nil {
		if errors.Is(err, workflow.ErrInvalidTransition) {
			return fmt.Errorf("%w: %s from status %s", ErrInvalidTransition, trigger, stay.Status)
		}
		return err
	}
	stay.Status = entity.StayStatus(m.State())
	return nil
}

// Create implements HospitalStayService. A stay requires a claim with an
// assigned hospital and an issued claim number, and is unique per claim.
func (s *hospitalStayService) Create(ctx context.Context, claimID int64, doctorID, notes string) (*entity.HospitalStay, error) {
	var stay *entity.HospitalStay

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		claim, err := s.claimRepo.GetByID(txCtx, claimID)
		if err != nil {
			return fmt.Errorf("get claim: %w", err)
		}
		if claim == nil {
			return fmt.Errorf("%w: claim %d", ErrNotFound, claimID)
		}
		if !claim.HasHospital() {
			return fmt.Errorf("%w: claim %d has no assigned hospital", ErrInvalidTransition, claimID)
		}
		if !claim.HasNumber() {
			return fmt.Errorf("%w: claim %d has no claim number", ErrInvalidTransition, claimID)
		}

		existing, err := s.stayRepo.GetByClaimID(txCtx, claimID)
		if err != nil {
			return fmt.Errorf("get stay: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("%w: claim %d already has a stay", ErrInvalidTransition, claimID)
		}

		stay = &entity.HospitalStay{
			ClaimID:      claimID,
			DoctorID:     doctorID,
			AdmittedAt:   time.Now(),
			ReportStatus: entity.ReportStatusNone,
			Status:       entity.StayStatusInProgress,
			Notes:        notes,
		}
		return s.stayRepo.Create(txCtx, stay)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Hospital stay created", "stay_id", stay.ID, "claim_id", claimID, "doctor_id", doctorID)
	return stay, nil
}

// SubmitReport implements HospitalStayService. Only the assigned doctor may
// submit, and only while the stay has not been validated or invoiced.
func (s *hospitalStayService) SubmitReport(ctx context.Context, stayID int64, doctorID string, fields ReportFields) (*entity.HospitalStay, error) {
	var stay *entity.HospitalStay

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		stay, err = s.getStay(txCtx, stayID)
		if err != nil {
			return err
		}
		if stay.DoctorID != doctorID {
			return fmt.Errorf("%w: doctor %s is not assigned to stay %d", ErrUnauthorized, doctorID, stayID)
		}

		if err := s.fire(txCtx, stay, triggerSubmitReport); err != nil {
			return err
		}

		now := time.Now()
		stay.Report = fields.Report
		stay.ActsCount = fields.ActsCount
		stay.ExamsCount = fields.ExamsCount
		stay.ReportStatus = entity.ReportStatusSubmitted
		if fields.Terminate && stay.DischargedAt == nil {
			stay.DischargedAt = &now
		}

		// A fresh submission supersedes any earlier validation decision.
		stay.ValidatedBy = nil
		stay.ValidatedAt = nil
		stay.ValidationNotes = ""

		return s.stayRepo.Update(txCtx, stay)
	})
	if err != nil {
		return nil, err
	}

	s.notifyReferent(ctx, stay, "Medical report submitted",
		fmt.Sprintf("Stay %d: report submitted and awaiting validation", stay.ID))
	return stay, nil
}

// Validate implements HospitalStayService. Only the claim's referring
// physician may validate, and only while the stay awaits validation.
func (s *hospitalStayService) Validate(ctx context.Context, stayID int64, referentID string, approve bool, notes string) (*entity.HospitalStay, error) {
	var stay *entity.HospitalStay

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		stay, err = s.getStay(txCtx, stayID)
		if err != nil {
			return err
		}

		claim, err := s.claimRepo.GetByID(txCtx, stay.ClaimID)
		if err != nil {
			return fmt.Errorf("get claim: %w", err)
		}
		if claim == nil || claim.ReferringPhysicianID != referentID {
			return fmt.Errorf("%w: %s is not the referring physician for stay %d", ErrUnauthorized, referentID, stayID)
		}

		trigger := triggerApproveStay
		if !approve {
			trigger = triggerRejectStay
		}
		if err := s.fire(txCtx, stay, trigger); err != nil {
			return err
		}

		now := time.Now()
		if approve {
			stay.ReportStatus = entity.ReportStatusApproved
		} else {
			stay.ReportStatus = entity.ReportStatusRejected
		}
		stay.ValidatedBy = &referentID
		stay.ValidatedAt = &now
		stay.ValidationNotes = notes

		return s.stayRepo.Update(txCtx, stay)
	})
	if err != nil {
		return nil, err
	}

	title := "Stay validated"
	if !approve {
		title = "Stay report rejected"
	}
	s.dispatcher.Notify(ctx, []string{stay.DoctorID}, title,
		fmt.Sprintf("Stay %d: %s", stay.ID, stay.ReportStatus), "stay", stay.ID)
	return stay, nil
}

// IssueInvoice implements HospitalStayService. Allowed only on a validated
// stay with no invoice yet; creates the invoice in pending_medical and moves
// the stay to its terminal invoiced status.
func (s *hospitalStayService) IssueInvoice(ctx context.Context, stayID int64, actor entity.Actor, taxRate float64, customLines []entity.InvoiceLine) (*entity.HospitalStay, *entity.Invoice, error) {
	if !actor.HasAnyRole(entity.RoleSinistre, entity.RoleReferent) {
		return nil, nil, fmt.Errorf("%w: role %s cannot issue invoices", ErrUnauthorized, actor.Role)
	}
	if taxRate < 0 || taxRate >= 1 {
		return nil, nil, fmt.Errorf("%w: tax rate %.2f out of range", ErrInvalidTransition, taxRate)
	}

	var (
		stay    *entity.HospitalStay
		invoice *entity.Invoice
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		stay, err = s.getStay(txCtx, stayID)
		if err != nil {
			return err
		}

		existing, err := s.invoiceRepo.GetByStayID(txCtx, stayID)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("%w: stay %d is already invoiced", ErrInvalidTransition, stayID)
		}

		if err := s.fire(txCtx, stay, triggerIssueInvoice); err != nil {
			return err
		}

		lines := customLines
		if len(lines) == 0 {
			lines = derivedLines(stay, time.Now())
		}
		var net int64
		for _, l := range lines {
			net += l.AmountCents
		}
		tax := int64(float64(net) * taxRate)

		pending := entity.DecisionPending
		invoice = &entity.Invoice{
			StayID:     stayID,
			Number:     newInvoiceNumber(time.Now()),
			Lines:      lines,
			NetCents:   net,
			TaxCents:   tax,
			GrossCents: net + tax,
			TaxRate:    taxRate,
			Status:     entity.InvoiceStatusPendingMedical,
			Medical:    entity.StageDecision{Value: &pending},
		}
		if err := s.invoiceRepo.Create(txCtx, invoice); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		entry := &entity.InvoiceHistoryEntry{
			InvoiceID:      invoice.ID,
			Action:         "invoice_issued",
			PreviousStatus: entity.InvoiceStatusDraft,
			NewStatus:      invoice.Status,
			PreviousStage:  entity.StageLabel(entity.InvoiceStatusDraft),
			NewStage:       entity.StageLabel(invoice.Status),
			ActorID:        actor.ID,
		}
		if err := s.historyRepo.Create(txCtx, entry); err != nil {
			return fmt.Errorf("create history: %w", err)
		}

		return s.stayRepo.Update(txCtx, stay)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Invoice issued", "invoice_id", invoice.ID, "stay_id", stayID, "gross_cents", invoice.GrossCents)
	return stay, invoice, nil
}

func (s *hospitalStayService) getStay(ctx context.Context, stayID int64) (*entity.HospitalStay, error) {
	stay, err := s.stayRepo.GetByID(ctx, stayID)
	if err != nil {
		return nil, fmt.Errorf("get stay: %w", err)
	}
	if stay == nil {
		return nil, fmt.Errorf("%w: stay %d", ErrNotFound, stayID)
	}
	return stay, nil
}

func (s *hospitalStayService) notifyReferent(ctx context.Context, stay *entity.HospitalStay, title, message string) {
	claim, err := s.claimRepo.GetByID(ctx, stay.ClaimID)
	if err != nil || claim == nil || claim.ReferringPhysicianID == "" {
		return
	}
	s.dispatcher.Notify(ctx, []string{claim.ReferringPhysicianID}, title, message, "stay", stay.ID)
}

// derivedLines prices a stay from its duration and the recorded acts and exams
func derivedLines(stay *entity.HospitalStay, now time.Time) []entity.InvoiceLine {
	days := stay.DurationDays(now)
	lines := []entity.InvoiceLine{
		{
			Label:          "Hospitalisation",
			Quantity:       days,
			UnitPriceCents: dayRateCents,
			AmountCents:    int64(days) * dayRateCents,
		},
	}
	if stay.ActsCount > 0 {
		lines = append(lines, entity.InvoiceLine{
			Label:          "Medical acts",
			Quantity:       stay.ActsCount,
			UnitPriceCents: actRateCents,
			AmountCents:    int64(stay.ActsCount) * actRateCents,
		})
	}
	if stay.ExamsCount > 0 {
		lines = append(lines, entity.InvoiceLine{
			Label:          "Examinations",
			Quantity:       stay.ExamsCount,
			UnitPriceCents: examRateCents,
			AmountCents:    int64(stay.ExamsCount) * examRateCents,
		})
	}
	return lines
}

// newInvoiceNumber builds an invoice number, e.g. INV-2026-8C2D41AF
func newInvoiceNumber(now time.Time) string {
	fragment := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%d-%s", now.Year(), fragment)
}
