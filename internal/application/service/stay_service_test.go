package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/medassist/claims-backoffice/internal/domain/entity"
)

// seedStay brings a claim to the point where a stay can exist: hospital
// assigned, claim number issued, stay created for doctor doc-1.
func (f *fixture) seedStay(ctx context.Context, t *testing.T) (*entity.Claim, *entity.HospitalStay) {
	t.Helper()
	_, claim := f.seedClaim(ctx)
	if _, err := f.intake.AssignHospital(ctx, claim.ID, 501,
		entity.Actor{ID: "agent-1", Role: entity.RoleSinistre}); err != nil {
		t.Fatalf("AssignHospital() error = %v", err)
	}
	if _, err := f.workflow.VerifyUrgency(ctx, claim.ID,
		entity.Actor{ID: "med-1", Role: entity.RoleMedical}); err != nil {
		t.Fatalf("VerifyUrgency() error = %v", err)
	}
	stay, err := f.stays.Create(ctx, claim.ID, "doc-1", "admitted via ER")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return claim, stay
}

func TestStayCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, stay := f.seedStay(ctx, t)

	if stay.Status != entity.StayStatusInProgress {
		t.Errorf("status = %s, want in_progress", stay.Status)
	}
	if stay.ReportStatus != entity.ReportStatusNone {
		t.Errorf("report status = %s, want none", stay.ReportStatus)
	}
	if stay.AdmittedAt.IsZero() {
		t.Error("AdmittedAt not set")
	}
}

func TestStayCreate_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown claim", func(t *testing.T) {
		f := newFixture()
		if _, err := f.stays.Create(ctx, 999, "doc-1", ""); !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("no hospital", func(t *testing.T) {
		f := newFixture()
		_, claim := f.seedClaim(ctx)
		if _, err := f.stays.Create(ctx, claim.ID, "doc-1", ""); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("error = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("no claim number", func(t *testing.T) {
		f := newFixture()
		_, claim := f.seedClaim(ctx)
		if _, err := f.intake.AssignHospital(ctx, claim.ID, 501,
			entity.Actor{ID: "agent-1", Role: entity.RoleSinistre}); err != nil {
			t.Fatalf("AssignHospital() error = %v", err)
		}
		if _, err := f.stays.Create(ctx, claim.ID, "doc-1", ""); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("error = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("one stay per claim", func(t *testing.T) {
		f := newFixture()
		claim, _ := f.seedStay(ctx, t)
		if _, err := f.stays.Create(ctx, claim.ID, "doc-2", ""); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("error = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestSubmitReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, stay := f.seedStay(ctx, t)

	got, err := f.stays.SubmitReport(ctx, stay.ID, "doc-1", ReportFields{
		Report:     "appendectomy, no complications",
		ActsCount:  2,
		ExamsCount: 1,
		Terminate:  true,
	})
	if err != nil {
		t.Fatalf("SubmitReport() error = %v", err)
	}

	if got.Status != entity.StayStatusAwaitingValidation {
		t.Errorf("status = %s, want awaiting_validation", got.Status)
	}
	if got.ReportStatus != entity.ReportStatusSubmitted {
		t.Errorf("report status = %s, want submitted", got.ReportStatus)
	}
	if got.ActsCount != 2 || got.ExamsCount != 1 {
		t.Errorf("counts = (%d, %d), want (2, 1)", got.ActsCount, got.ExamsCount)
	}
	if got.DischargedAt == nil {
		t.Error("DischargedAt not set on terminating submission")
	}
}

func TestSubmitReport_WrongDoctor(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, stay := f.seedStay(ctx, t)

	_, err := f.stays.SubmitReport(ctx, stay.ID, "doc-2", ReportFields{Report: "x"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestSubmitReport_AfterRejection(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, stay := f.seedStay(ctx, t)

	if _, err := f.stays.SubmitReport(ctx, stay.ID, "doc-1", ReportFields{Report: "v1"}); err != nil {
		t.Fatalf("SubmitReport() error = %v", err)
	}
	if _, err := f.stays.Validate(ctx, stay.ID, "referent-1", false, "incomplete"); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	got, err := f.stays.SubmitReport(ctx, stay.ID, "doc-1", ReportFields{Report: "v2"})
	if err != nil {
		t.Fatalf("resubmission error = %v", err)
	}
	if got.Status != entity.StayStatusAwaitingValidation {
		t.Errorf("status = %s, want awaiting_validation", got.Status)
	}
	// The earlier decision is superseded.
	if got.ValidatedBy != nil || got.ValidatedAt != nil || got.ValidationNotes != "" {
		t.Error("previous validation decision not cleared")
	}
	if got.Report != "v2" {
		t.Errorf("report = %q, want v2", got.Report)
	}
}

func TestSubmitReport_LockedAfterValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	stay := f.validatedStay(ctx, t)

	// Once approved, the report can no longer be amended.
	_, err := f.stays.SubmitReport(ctx, stay.ID, "doc-1", ReportFields{Report: "late edit"})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("error on validated stay = %v, want ErrInvalidTransition", err)
	}

	actor := entity.Actor{ID: "agent-1", Role: entity.RoleSinistre}
	if _, _, err := f.stays.IssueInvoice(ctx, stay.ID, actor, 0.20, nil); err != nil {
		t.Fatalf("IssueInvoice() error = %v", err)
	}

	_, err = f.stays.SubmitReport(ctx, stay.ID, "doc-1", ReportFields{Report: "post-invoice edit"})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("error on invoiced stay = %v, want ErrInvalidTransition", err)
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, stay := f.seedStay(ctx, t)
	if _, err := f.stays.SubmitReport(ctx, stay.ID, "doc-1", ReportFields{Report: "r"}); err != nil {
		t.Fatalf("SubmitReport() error = %v", err)
	}

	got, err := f.stays.Validate(ctx, stay.ID, "referent-1", true, "looks good")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if got.Status != entity.StayStatusValidated {
		t.Errorf("status = %s, want validated", got.Status)
	}
	if got.ReportStatus != entity.ReportStatusApproved {
		t.Errorf("report status = %s, want approved", got.ReportStatus)
	}
	if got.ValidatedBy == nil || *got.ValidatedBy != "referent-1" {
		t.Error("ValidatedBy not recorded")
	}
	if got.ValidatedAt == nil {
		t.Error("ValidatedAt not recorded")
	}
	if got.ValidationNotes != "looks good" {
		t.Errorf("notes = %q", got.ValidationNotes)
	}
}

func TestValidate_Gates(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, stay := f.seedStay(ctx, t)

	// No report submitted: validation has nothing to decide on.
	if _, err := f.stays.Validate(ctx, stay.ID, "referent-1", true, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("premature validation error = %v, want ErrInvalidTransition", err)
	}

	if _, err := f.stays.SubmitReport(ctx, stay.ID, "doc-1", ReportFields{Report: "r"}); err != nil {
		t.Fatalf("SubmitReport() error = %v", err)
	}
	if _, err := f.stays.Validate(ctx, stay.ID, "someone-else", true, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("wrong referent error = %v, want ErrUnauthorized", err)
	}
}

// validatedStay walks a stay through report submission and approval
func (f *fixture) validatedStay(ctx context.Context, t *testing.T) *entity.HospitalStay {
	t.Helper()
	_, stay := f.seedStay(ctx, t)
	if _, err := f.stays.SubmitReport(ctx, stay.ID, "doc-1", ReportFields{
		Report: "r", ActsCount: 3, ExamsCount: 2, Terminate: true,
	}); err != nil {
		t.Fatalf("SubmitReport() error = %v", err)
	}
	stay, err := f.stays.Validate(ctx, stay.ID, "referent-1", true, "ok")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return stay
}

func TestIssueInvoice_DerivedLines(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	stay := f.validatedStay(ctx, t)
	actor := entity.Actor{ID: "agent-1", Role: entity.RoleSinistre}

	gotStay, inv, err := f.stays.IssueInvoice(ctx, stay.ID, actor, 0.20, nil)
	if err != nil {
		t.Fatalf("IssueInvoice() error = %v", err)
	}

	if gotStay.Status != entity.StayStatusInvoiced {
		t.Errorf("stay status = %s, want invoiced", gotStay.Status)
	}
	if !strings.HasPrefix(inv.Number, "INV-") {
		t.Errorf("invoice number = %s, want INV- prefix", inv.Number)
	}
	if inv.Status != entity.InvoiceStatusPendingMedical {
		t.Errorf("invoice status = %s, want pending_medical", inv.Status)
	}

	// One day of stay plus 3 acts and 2 exams at the default rates.
	wantNet := dayRateCents + 3*actRateCents + 2*examRateCents
	if inv.NetCents != wantNet {
		t.Errorf("net = %d, want %d", inv.NetCents, wantNet)
	}
	wantTax := int64(float64(wantNet) * 0.20)
	if inv.TaxCents != wantTax {
		t.Errorf("tax = %d, want %d", inv.TaxCents, wantTax)
	}
	if inv.GrossCents != wantNet+wantTax {
		t.Errorf("gross = %d, want %d", inv.GrossCents, wantNet+wantTax)
	}
	if len(inv.Lines) != 3 {
		t.Errorf("got %d lines, want 3", len(inv.Lines))
	}

	// The medical stage opens pending, the later stages are not reached yet.
	if d := inv.DecisionFor(entity.StageMedical); d.Value == nil || *d.Value != entity.DecisionPending {
		t.Error("medical stage not pending")
	}
	if inv.DecisionFor(entity.StageSinistre).Value != nil {
		t.Error("sinistre stage decided prematurely")
	}

	hist, err := f.histRepo.GetByInvoiceID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetByInvoiceID() error = %v", err)
	}
	if len(hist) != 1 || hist[0].Action != "invoice_issued" {
		t.Errorf("history = %+v, want one invoice_issued entry", hist)
	}
}

func TestIssueInvoice_CustomLines(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	stay := f.validatedStay(ctx, t)
	actor := entity.Actor{ID: "referent-1", Role: entity.RoleReferent}

	lines := []entity.InvoiceLine{
		{Label: "Flat package", Quantity: 1, UnitPriceCents: 200_000, AmountCents: 200_000},
	}
	_, inv, err := f.stays.IssueInvoice(ctx, stay.ID, actor, 0, lines)
	if err != nil {
		t.Fatalf("IssueInvoice() error = %v", err)
	}

	if inv.NetCents != 200_000 || inv.TaxCents != 0 || inv.GrossCents != 200_000 {
		t.Errorf("amounts = (%d, %d, %d), want (200000, 0, 200000)",
			inv.NetCents, inv.TaxCents, inv.GrossCents)
	}
}

func TestIssueInvoice_Gates(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	stay := f.validatedStay(ctx, t)

	if _, _, err := f.stays.IssueInvoice(ctx, stay.ID,
		entity.Actor{ID: "doc-1", Role: entity.RoleDoctor}, 0.2, nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("role gate error = %v, want ErrUnauthorized", err)
	}

	if _, _, err := f.stays.IssueInvoice(ctx, stay.ID,
		entity.Actor{ID: "agent-1", Role: entity.RoleSinistre}, 1.0, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("tax rate error = %v, want ErrInvalidTransition", err)
	}

	actor := entity.Actor{ID: "agent-1", Role: entity.RoleSinistre}
	if _, _, err := f.stays.IssueInvoice(ctx, stay.ID, actor, 0.2, nil); err != nil {
		t.Fatalf("IssueInvoice() error = %v", err)
	}
	if _, _, err := f.stays.IssueInvoice(ctx, stay.ID, actor, 0.2, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double issue error = %v, want ErrInvalidTransition", err)
	}
}

func TestIssueInvoice_RequiresValidatedStay(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, stay := f.seedStay(ctx, t)
	actor := entity.Actor{ID: "agent-1", Role: entity.RoleSinistre}

	if _, _, err := f.stays.IssueInvoice(ctx, stay.ID, actor, 0.2, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("error = %v, want ErrInvalidTransition", err)
	}
}
