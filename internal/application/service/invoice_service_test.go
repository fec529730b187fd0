package service

import (
	"context"
	"errors"
	"testing"

	"github.com/medassist/claims-backoffice/internal/domain/entity"
)

var (
	medicalActor  = entity.Actor{ID: "med-1", Role: entity.RoleMedical}
	sinistreActor = entity.Actor{ID: "agent-1", Role: entity.RoleSinistre}
	comptaActor   = entity.Actor{ID: "acct-1", Role: entity.RoleCompta}
)

// seedInvoice walks a claim through stay validation and invoice issuance
func (f *fixture) seedInvoice(ctx context.Context, t *testing.T) *entity.Invoice {
	t.Helper()
	stay := f.validatedStay(ctx, t)
	_, inv, err := f.stays.IssueInvoice(ctx, stay.ID, sinistreActor, 0.20, nil)
	if err != nil {
		t.Fatalf("IssueInvoice() error = %v", err)
	}
	return inv
}

func TestDecideStage_FullApprovalChain(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	inv := f.seedInvoice(ctx, t)

	inv, err := f.invoices.DecideStage(ctx, inv.ID, entity.StageMedical, medicalActor, true, "conform")
	if err != nil {
		t.Fatalf("medical decision error = %v", err)
	}
	if inv.Status != entity.InvoiceStatusPendingSinistre {
		t.Fatalf("status = %s, want pending_sinistre", inv.Status)
	}
	if d := inv.DecisionFor(entity.StageSinistre); d.Value == nil || *d.Value != entity.DecisionPending {
		t.Error("sinistre stage not opened pending after medical approval")
	}

	inv, err = f.invoices.DecideStage(ctx, inv.ID, entity.StageSinistre, sinistreActor, true, "")
	if err != nil {
		t.Fatalf("sinistre decision error = %v", err)
	}
	if inv.Status != entity.InvoiceStatusPendingCompta {
		t.Fatalf("status = %s, want pending_compta", inv.Status)
	}

	inv, err = f.invoices.DecideStage(ctx, inv.ID, entity.StageCompta, comptaActor, true, "booked")
	if err != nil {
		t.Fatalf("compta decision error = %v", err)
	}
	if inv.Status != entity.InvoiceStatusValidated {
		t.Fatalf("status = %s, want validated", inv.Status)
	}

	for _, stage := range []entity.Stage{entity.StageMedical, entity.StageSinistre, entity.StageCompta} {
		d := inv.DecisionFor(stage)
		if !d.IsApproved() {
			t.Errorf("stage %s not approved", stage)
		}
		if d.DecidedAt == nil {
			t.Errorf("stage %s missing decision timestamp", stage)
		}
	}

	// issuance + three stage decisions
	hist, err := f.invoices.GetHistory(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(hist) != 4 {
		t.Errorf("got %d history entries, want 4", len(hist))
	}
}

func TestDecideStage_ComptaApprovalResolvesAlert(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	inv := f.seedInvoice(ctx, t)

	if _, err := f.invoices.DecideStage(ctx, inv.ID, entity.StageMedical, medicalActor, true, ""); err != nil {
		t.Fatalf("medical decision error = %v", err)
	}
	if _, err := f.invoices.DecideStage(ctx, inv.ID, entity.StageSinistre, sinistreActor, true, ""); err != nil {
		t.Fatalf("sinistre decision error = %v", err)
	}
	notified := len(f.dispatcher.sent)
	if _, err := f.invoices.DecideStage(ctx, inv.ID, entity.StageCompta, comptaActor, true, ""); err != nil {
		t.Fatalf("compta decision error = %v", err)
	}

	alert, err := f.alertRepo.GetByID(ctx, f.store.alerts[1].ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if alert.Status != entity.AlertStatusResolved {
		t.Errorf("alert status = %s, want resolved", alert.Status)
	}
	if len(f.dispatcher.sent) != notified+1 {
		t.Errorf("compta approval dispatched %d notifications, want 1", len(f.dispatcher.sent)-notified)
	}
}

func TestDecideStage_Monotonic(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	inv := f.seedInvoice(ctx, t)

	// Later stages cannot run ahead of the pipeline.
	if _, err := f.invoices.DecideStage(ctx, inv.ID, entity.StageSinistre, sinistreActor, true, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("out-of-order sinistre error = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.invoices.DecideStage(ctx, inv.ID, entity.StageCompta, comptaActor, true, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("out-of-order compta error = %v, want ErrInvalidTransition", err)
	}

	if _, err := f.invoices.DecideStage(ctx, inv.ID, entity.StageMedical, medicalActor, true, ""); err != nil {
		t.Fatalf("medical decision error = %v", err)
	}

	// A decided stage is immutable, in both directions.
	_, err := f.invoices.DecideStage(ctx, inv.ID, entity.StageMedical, medicalActor, true, "")
	if !errors.Is(err, ErrStageAlreadyDecided) {
		t.Errorf("repeat approval error = %v, want ErrStageAlreadyDecided", err)
	}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("ErrStageAlreadyDecided should wrap ErrInvalidTransition")
	}
	if _, err := f.invoices.DecideStage(ctx, inv.ID, entity.StageMedical, medicalActor, false, ""); !errors.Is(err, ErrStageAlreadyDecided) {
		t.Errorf("flip to rejection error = %v, want ErrStageAlreadyDecided", err)
	}
}

func TestDecideStage_RejectionIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	inv := f.seedInvoice(ctx, t)

	if _, err := f.invoices.DecideStage(ctx, inv.ID, entity.StageMedical, medicalActor, true, ""); err != nil {
		t.Fatalf("medical decision error = %v", err)
	}
	inv, err := f.invoices.DecideStage(ctx, inv.ID, entity.StageSinistre, sinistreActor, false, "amount mismatch")
	if err != nil {
		t.Fatalf("rejection error = %v", err)
	}

	if inv.Status != entity.InvoiceStatusRejected {
		t.Fatalf("status = %s, want rejected", inv.Status)
	}
	if !inv.DecisionFor(entity.StageSinistre).IsRejected() {
		t.Error("sinistre stage not recorded as rejected")
	}
	// The stage never reached goes back to undecided.
	if inv.DecisionFor(entity.StageCompta).Value != nil {
		t.Error("compta stage not cleared after rejection")
	}

	if _, err := f.invoices.DecideStage(ctx, inv.ID, entity.StageCompta, comptaActor, true, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("decision on rejected invoice error = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.invoices.MarkPaid(ctx, inv.ID, comptaActor); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("payment of rejected invoice error = %v, want ErrInvalidTransition", err)
	}
}

func TestDecideStage_Gates(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	inv := f.seedInvoice(ctx, t)

	if _, err := f.invoices.DecideStage(ctx, inv.ID, entity.StageMedical, sinistreActor, true, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("wrong role error = %v, want ErrUnauthorized", err)
	}
	if _, err := f.invoices.DecideStage(ctx, inv.ID, entity.Stage("legal"), medicalActor, true, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("unknown stage error = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.invoices.DecideStage(ctx, 999, entity.StageMedical, medicalActor, true, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown invoice error = %v, want ErrNotFound", err)
	}

	// Admin passes every stage gate.
	if _, err := f.invoices.DecideStage(ctx, inv.ID, entity.StageMedical,
		entity.Actor{ID: "root", Role: entity.RoleAdmin}, true, ""); err != nil {
		t.Errorf("admin decision error = %v", err)
	}
}

func TestMarkPaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	inv := f.seedInvoice(ctx, t)

	if _, err := f.invoices.MarkPaid(ctx, inv.ID, comptaActor); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("premature payment error = %v, want ErrInvalidTransition", err)
	}

	for _, step := range []struct {
		stage entity.Stage
		actor entity.Actor
	}{
		{entity.StageMedical, medicalActor},
		{entity.StageSinistre, sinistreActor},
		{entity.StageCompta, comptaActor},
	} {
		if _, err := f.invoices.DecideStage(ctx, inv.ID, step.stage, step.actor, true, ""); err != nil {
			t.Fatalf("%s decision error = %v", step.stage, err)
		}
	}

	if _, err := f.invoices.MarkPaid(ctx, inv.ID, medicalActor); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("wrong role error = %v, want ErrUnauthorized", err)
	}

	inv, err := f.invoices.MarkPaid(ctx, inv.ID, comptaActor)
	if err != nil {
		t.Fatalf("MarkPaid() error = %v", err)
	}
	if inv.Status != entity.InvoiceStatusPaid {
		t.Errorf("status = %s, want paid", inv.Status)
	}

	if _, err := f.invoices.MarkPaid(ctx, inv.ID, comptaActor); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double payment error = %v, want ErrInvalidTransition", err)
	}
}
