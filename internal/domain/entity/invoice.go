package entity

import "time"

// InvoiceStatus represents the overall status of a hospital invoice in the
// approval pipeline
type InvoiceStatus string

const (
	InvoiceStatusDraft           InvoiceStatus = "draft"
	InvoiceStatusPendingMedical  InvoiceStatus = "pending_medical"
	InvoiceStatusPendingSinistre InvoiceStatus = "pending_sinistre"
	InvoiceStatusPendingCompta   InvoiceStatus = "pending_compta"
	InvoiceStatusValidated       InvoiceStatus = "validated"
	InvoiceStatusRejected        InvoiceStatus = "rejected"
	InvoiceStatusPaid            InvoiceStatus = "paid"
)

var validInvoiceStatuses = map[InvoiceStatus]bool{
	InvoiceStatusDraft:           true,
	InvoiceStatusPendingMedical:  true,
	InvoiceStatusPendingSinistre: true,
	InvoiceStatusPendingCompta:   true,
	InvoiceStatusValidated:       true,
	InvoiceStatusRejected:        true,
	InvoiceStatusPaid:            true,
}

var terminalInvoiceStatuses = map[InvoiceStatus]bool{
	InvoiceStatusRejected: true,
	InvoiceStatusPaid:     true,
}

// IsValid returns true if the status is a defined invoice status
func (s InvoiceStatus) IsValid() bool {
	return validInvoiceStatuses[s]
}

// IsTerminal returns true if no further pipeline transition is allowed
func (s InvoiceStatus) IsTerminal() bool {
	return terminalInvoiceStatuses[s]
}

// String returns the string representation of the status
func (s InvoiceStatus) String() string {
	return string(s)
}

// Stage identifies one of the three sequential validation stages of the
// invoice approval pipeline
type Stage string

const (
	StageMedical  Stage = "medical"
	StageSinistre Stage = "sinistre"
	StageCompta   Stage = "compta"
)

var validStages = map[Stage]bool{
	StageMedical:  true,
	StageSinistre: true,
	StageCompta:   true,
}

// IsValid returns true if the stage is one of the three pipeline stages
func (s Stage) IsValid() bool {
	return validStages[s]
}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// StageLabel derives the audit-trail stage label from an invoice status.
// Validated and paid invoices label as "compta" (the last stage reached),
// rejected invoices label as "rejected".
func StageLabel(status InvoiceStatus) string {
	switch status {
	case InvoiceStatusPendingMedical:
		return string(StageMedical)
	case InvoiceStatusPendingSinistre:
		return string(StageSinistre)
	case InvoiceStatusPendingCompta, InvoiceStatusValidated, InvoiceStatusPaid:
		return string(StageCompta)
	case InvoiceStatusRejected:
		return "rejected"
	default:
		return ""
	}
}

// Decision is the value of a single stage validation decision
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// IsValid returns true if the decision is a defined value
func (d Decision) IsValid() bool {
	return d == DecisionPending || d == DecisionApproved || d == DecisionRejected
}

// String returns the string representation of the decision
func (d Decision) String() string {
	return string(d)
}

// StageDecision is one independent validation decision within the pipeline.
// A nil Value means the stage has not been reached.
type StageDecision struct {
	Value     *Decision  `json:"value,omitempty"`
	ActorID   string     `json:"actor_id,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// IsDecided reports whether the stage has been approved or rejected
func (d StageDecision) IsDecided() bool {
	return d.Value != nil && *d.Value != DecisionPending
}

// IsApproved reports whether the stage has been approved
func (d StageDecision) IsApproved() bool {
	return d.Value != nil && *d.Value == DecisionApproved
}

// IsRejected reports whether the stage has been rejected
func (d StageDecision) IsRejected() bool {
	return d.Value != nil && *d.Value == DecisionRejected
}

// InvoiceLine is one billed line item on an invoice. Amounts are in cents.
type InvoiceLine struct {
	Label          string `json:"label"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	AmountCents    int64  `json:"amount_cents"`
}

// Invoice represents a hospital invoice moving through the three-stage
// approval pipeline. At most one invoice exists per hospital stay. The
// overall status is a deterministic function of the three stage decisions.
type Invoice struct {
	ID         int64         `json:"id"`
	StayID     int64         `json:"stay_id"`
	Number     string        `json:"number"`
	Lines      []InvoiceLine `json:"lines"`
	NetCents   int64         `json:"net_cents"`
	TaxCents   int64         `json:"tax_cents"`
	GrossCents int64         `json:"gross_cents"`
	TaxRate    float64       `json:"tax_rate"`
	Status     InvoiceStatus `json:"status"`
	Medical    StageDecision `json:"medical"`
	Sinistre   StageDecision `json:"sinistre"`
	Compta     StageDecision `json:"compta"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// DecisionFor returns a pointer to the decision record for the given stage
func (i *Invoice) DecisionFor(stage Stage) *StageDecision {
	switch stage {
	case StageMedical:
		return &i.Medical
	case StageSinistre:
		return &i.Sinistre
	case StageCompta:
		return &i.Compta
	default:
		return nil
	}
}

// InvoiceHistoryEntry is one append-only audit record per invoice mutation.
// Entries are never mutated or deleted.
type InvoiceHistoryEntry struct {
	ID             int64         `json:"id"`
	InvoiceID      int64         `json:"invoice_id"`
	Action         string        `json:"action"`
	PreviousStatus InvoiceStatus `json:"previous_status"`
	NewStatus      InvoiceStatus `json:"new_status"`
	PreviousStage  string        `json:"previous_stage"`
	NewStage       string        `json:"new_stage"`
	ActorID        string        `json:"actor_id"`
	Notes          string        `json:"notes,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
