package service

import (
	"github.com/medassist/claims-backoffice/internal/domain/catalog"
	"github.com/medassist/claims-backoffice/internal/domain/entity"
)

// StepRuleFunc applies the cascading effect of one step transition. It
// mutates the passed-in claim and alert in place and reports whether anything
// changed, so the caller knows whether to persist them. Alert may be nil.
type StepRuleFunc func(claim *entity.Claim, alert *entity.Alert, status entity.StepStatus) bool

// BusinessRuleEngine holds an open table of step-transition side effects,
// keyed by step key. Rules can be registered without touching the workflow
// engine.
type BusinessRuleEngine struct {
	rules map[string][]StepRuleFunc
}

// NewBusinessRuleEngine creates a rule engine loaded with the default rules
func NewBusinessRuleEngine() *BusinessRuleEngine {
	e := &BusinessRuleEngine{rules: make(map[string][]StepRuleFunc)}
	e.Register(catalog.KeyCoverageSuspended, suspensionRule)
	return e
}

// Register adds a rule for the given step key
func (e *BusinessRuleEngine) Register(stepKey string, rule StepRuleFunc) {
	e.rules[stepKey] = append(e.rules[stepKey], rule)
}

// Apply runs all rules registered for the step key against its new status and
// reports whether claim or alert changed.
func (e *BusinessRuleEngine) Apply(claim *entity.Claim, alert *entity.Alert, stepKey string, status entity.StepStatus) bool {
	changed := false
	for _, rule := range e.rules[stepKey] {
		if rule(claim, alert, status) {
			changed = true
		}
	}
	return changed
}

// suspensionRule cancels the claim (and its alert) when the coverage
// suspension step completes, and reverts both to in_progress when the step is
// moved away from completed while the claim is cancelled.
func suspensionRule(claim *entity.Claim, alert *entity.Alert, status entity.StepStatus) bool {
	changed := false
	if status == entity.StepStatusCompleted {
		if claim.Status != entity.ClaimStatusCancelled {
			claim.Status = entity.ClaimStatusCancelled
			changed = true
		}
		if alert != nil && alert.Status != entity.AlertStatusCancelled {
			alert.Status = entity.AlertStatusCancelled
			changed = true
		}
		return changed
	}

	if claim.Status == entity.ClaimStatusCancelled {
		claim.Status = entity.ClaimStatusInProgress
		changed = true
		if alert != nil && alert.Status == entity.AlertStatusCancelled {
			alert.Status = entity.AlertStatusInProgress
		}
	}
	return changed
}
