package catalog

import (
	"time"

	"github.com/medassist/claims-backoffice/internal/domain/entity"
)

// Inputs carries the related entities a step status is computed from. Alert,
// Stay and Invoice may be nil; Claim is always set.
type Inputs struct {
	Claim   *entity.Claim
	Alert   *entity.Alert
	Stay    *entity.HospitalStay
	Invoice *entity.Invoice
}

// RuleFunc computes the status of one auto-synced step. Rules are pure: no
// side effects, no persistence access beyond the entities passed in.
type RuleFunc func(in Inputs) (entity.StepStatus, *time.Time)

// rules is the closed dispatch table of status rules, keyed by step key.
// A key absent from the table resolves to pending; that fallback is
// deliberate, manual steps have no rule.
var rules = map[string]RuleFunc{
	KeyAlertTriggered:       alertExistsRule,
	KeyOpsCenterNotified:    alertExistsRule,
	KeyHospitalActivated:    hospitalActivatedRule,
	KeyUrgencyVerified:      urgencyVerifiedRule,
	KeyClaimNumberAssigned:  claimNumberRule,
	KeyInvoiceIssued:        invoiceIssuedRule,
	KeyInvoiceMedicalValid:  stageRule(entity.StageMedical, entity.InvoiceStatusPendingMedical, nil),
	KeyInvoiceSinistreValid: stageRule(entity.StageSinistre, entity.InvoiceStatusPendingSinistre, prerequisite(entity.StageMedical)),
	KeyInvoiceComptaValid:   stageRule(entity.StageCompta, entity.InvoiceStatusPendingCompta, prerequisite(entity.StageSinistre)),
}

// Resolve maps (stepKey, related entities) to a step status and completion
// timestamp. Deterministic and side-effect free.
func Resolve(stepKey string, in Inputs) (entity.StepStatus, *time.Time) {
	rule, ok := rules[stepKey]
	if !ok {
		return entity.StepStatusPending, nil
	}
	return rule(in)
}

// HasRule reports whether the key has an explicit status rule
func HasRule(stepKey string) bool {
	_, ok := rules[stepKey]
	return ok
}

func alertExistsRule(in Inputs) (entity.StepStatus, *time.Time) {
	if in.Alert == nil {
		return entity.StepStatusPending, nil
	}
	t := in.Alert.CreatedAt
	return entity.StepStatusCompleted, &t
}

func hospitalActivatedRule(in Inputs) (entity.StepStatus, *time.Time) {
	if in.Claim != nil && in.Claim.HasHospital() {
		t := in.Claim.UpdatedAt
		return entity.StepStatusCompleted, &t
	}
	return entity.StepStatusInProgress, nil
}

// urgencyVerifiedRule treats either a resolved claim or an assigned claim
// number as verification. The two can disagree for a short window when the
// number is set before the status changes; the number is the earlier signal.
func urgencyVerifiedRule(in Inputs) (entity.StepStatus, *time.Time) {
	if in.Claim == nil {
		return entity.StepStatusPending, nil
	}
	switch {
	case in.Claim.Status == entity.ClaimStatusCancelled:
		return entity.StepStatusCancelled, nil
	case in.Claim.Status == entity.ClaimStatusResolved || in.Claim.HasNumber():
		t := in.Claim.UpdatedAt
		return entity.StepStatusCompleted, &t
	default:
		return entity.StepStatusInProgress, nil
	}
}

func claimNumberRule(in Inputs) (entity.StepStatus, *time.Time) {
	if in.Claim != nil && in.Claim.HasNumber() {
		t := in.Claim.UpdatedAt
		return entity.StepStatusCompleted, &t
	}
	return entity.StepStatusPending, nil
}

func invoiceIssuedRule(in Inputs) (entity.StepStatus, *time.Time) {
	if in.Invoice != nil {
		t := in.Invoice.CreatedAt
		return entity.StepStatusCompleted, &t
	}
	if in.Stay != nil && in.Stay.Status == entity.StayStatusValidated {
		return entity.StepStatusInProgress, nil
	}
	return entity.StepStatusPending, nil
}

// prerequisite returns a check that the earlier stage has been approved
func prerequisite(earlier entity.Stage) func(inv *entity.Invoice) bool {
	return func(inv *entity.Invoice) bool {
		return inv.DecisionFor(earlier).IsApproved()
	}
}

// stageRule builds the rule for one invoice-validation step. Rejection of the
// stage maps to cancelled, approval maps to completed, the stage currently
// pending decision maps to in_progress. No invoice, or an unmet prerequisite,
// yields pending.
func stageRule(stage entity.Stage, pendingStatus entity.InvoiceStatus, prereq func(*entity.Invoice) bool) RuleFunc {
	return func(in Inputs) (entity.StepStatus, *time.Time) {
		inv := in.Invoice
		if inv == nil {
			return entity.StepStatusPending, nil
		}
		if prereq != nil && !prereq(inv) {
			// A rejection upstream cancels this step as well.
			if inv.Status == entity.InvoiceStatusRejected {
				return entity.StepStatusCancelled, nil
			}
			return entity.StepStatusPending, nil
		}

		decision := inv.DecisionFor(stage)
		switch {
		case decision.IsRejected():
			return entity.StepStatusCancelled, decision.DecidedAt
		case decision.IsApproved():
			return entity.StepStatusCompleted, decision.DecidedAt
		case inv.Status == pendingStatus:
			return entity.StepStatusInProgress, nil
		case inv.Status == entity.InvoiceStatusRejected:
			return entity.StepStatusCancelled, nil
		default:
			return entity.StepStatusPending, nil
		}
	}
}
