package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medassist/claims-backoffice/internal/application/port"
	"github.com/medassist/claims-backoffice/internal/domain/entity"
	"github.com/medassist/claims-backoffice/internal/infrastructure/persistence/sqlite"
)

// InvoiceRepository implements port.InvoiceRepository
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) port.InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

const invoiceColumns = `id, stay_id, number, lines, net_cents, tax_cents, gross_cents,
	tax_rate, status,
	medical_decision, medical_actor_id, medical_decided_at, medical_notes,
	sinistre_decision, sinistre_actor_id, sinistre_decided_at, sinistre_notes,
	compta_decision, compta_actor_id, compta_decided_at, compta_notes,
	created_at, updated_at`

// Create creates a new invoice record
func (r *InvoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		INSERT INTO invoices (
			stay_id, number, lines, net_cents, tax_cents, gross_cents,
			tax_rate, status,
			medical_decision, medical_actor_id, medical_decided_at, medical_notes,
			sinistre_decision, sinistre_actor_id, sinistre_decided_at, sinistre_notes,
			compta_decision, compta_actor_id, compta_decided_at, compta_notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	lines, err := marshalLines(invoice.Lines)
	if err != nil {
		return err
	}

	now := time.Now()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now

	args := []interface{}{
		invoice.StayID,
		invoice.Number,
		lines,
		invoice.NetCents,
		invoice.TaxCents,
		invoice.GrossCents,
		invoice.TaxRate,
		invoice.Status.String(),
	}
	args = append(args, decisionArgs(invoice.Medical)...)
	args = append(args, decisionArgs(invoice.Sinistre)...)
	args = append(args, decisionArgs(invoice.Compta)...)
	args = append(args, invoice.CreatedAt, invoice.UpdatedAt)

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to create invoice", zap.Int64("stay_id", invoice.StayID), zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	invoice.ID = id
	return nil
}

// GetByID retrieves an invoice by its ID, returning nil when not found
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByStayID retrieves the invoice attached to a stay, returning nil when
// none exists
func (r *InvoiceRepository) GetByStayID(ctx context.Context, stayID int64) (*entity.Invoice, error) {
	return r.getOne(ctx, "stay_id = ?", stayID)
}

func (r *InvoiceRepository) getOne(ctx context.Context, where string, arg interface{}) (*entity.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s`, invoiceColumns, where)

	row := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, arg)
	invoice, err := scanInvoice(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	return invoice, nil
}

// ListByStatus retrieves all invoices with the given status ordered by
// creation time
func (r *InvoiceRepository) ListByStatus(ctx context.Context, status entity.InvoiceStatus) ([]*entity.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE status = ? ORDER BY created_at ASC, id ASC`, invoiceColumns)

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, status.String())
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.String("status", status.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*entity.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}

	return invoices, rows.Err()
}

// Update updates an invoice
func (r *InvoiceRepository) Update(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET lines = ?, net_cents = ?, tax_cents = ?, gross_cents = ?,
			tax_rate = ?, status = ?,
			medical_decision = ?, medical_actor_id = ?, medical_decided_at = ?, medical_notes = ?,
			sinistre_decision = ?, sinistre_actor_id = ?, sinistre_decided_at = ?, sinistre_notes = ?,
			compta_decision = ?, compta_actor_id = ?, compta_decided_at = ?, compta_notes = ?,
			updated_at = ?
		WHERE id = ?
	`

	lines, err := marshalLines(invoice.Lines)
	if err != nil {
		return err
	}

	invoice.UpdatedAt = time.Now()

	args := []interface{}{
		lines,
		invoice.NetCents,
		invoice.TaxCents,
		invoice.GrossCents,
		invoice.TaxRate,
		invoice.Status.String(),
	}
	args = append(args, decisionArgs(invoice.Medical)...)
	args = append(args, decisionArgs(invoice.Sinistre)...)
	args = append(args, decisionArgs(invoice.Compta)...)
	args = append(args, invoice.UpdatedAt, invoice.ID)

	_, err = sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update invoice", zap.Int64("id", invoice.ID), zap.Error(err))
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	return nil
}

func marshalLines(lines []entity.InvoiceLine) (string, error) {
	if len(lines) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("failed to marshal invoice lines: %w", err)
	}
	return string(raw), nil
}

// decisionArgs flattens one stage decision into its four column values. A nil
// decision value maps to NULL, keeping "not reached" distinct from "pending".
func decisionArgs(d entity.StageDecision) []interface{} {
	var value interface{}
	if d.Value != nil {
		value = d.Value.String()
	}
	var actorID interface{}
	if d.ActorID != "" {
		actorID = d.ActorID
	}
	return []interface{}{value, actorID, d.DecidedAt, d.Notes}
}

func scanInvoice(scan func(dest ...interface{}) error) (*entity.Invoice, error) {
	var invoice entity.Invoice
	var lines, status string
	var medical, sinistre, compta decisionRow

	err := scan(
		&invoice.ID,
		&invoice.StayID,
		&invoice.Number,
		&lines,
		&invoice.NetCents,
		&invoice.TaxCents,
		&invoice.GrossCents,
		&invoice.TaxRate,
		&status,
		&medical.value, &medical.actorID, &medical.decidedAt, &medical.notes,
		&sinistre.value, &sinistre.actorID, &sinistre.decidedAt, &sinistre.notes,
		&compta.value, &compta.actorID, &compta.decidedAt, &compta.notes,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	invoice.Status = entity.InvoiceStatus(status)
	if err := json.Unmarshal([]byte(lines), &invoice.Lines); err != nil {
		return nil, fmt.Errorf("failed to unmarshal invoice lines: %w", err)
	}
	invoice.Medical = medical.toDecision()
	invoice.Sinistre = sinistre.toDecision()
	invoice.Compta = compta.toDecision()

	return &invoice, nil
}

type decisionRow struct {
	value     sql.NullString
	actorID   sql.NullString
	decidedAt sql.NullTime
	notes     sql.NullString
}

func (d decisionRow) toDecision() entity.StageDecision {
	var dec entity.StageDecision
	if d.value.Valid {
		v := entity.Decision(d.value.String)
		dec.Value = &v
	}
	dec.ActorID = d.actorID.String
	if d.decidedAt.Valid {
		t := d.decidedAt.Time
		dec.DecidedAt = &t
	}
	dec.Notes = d.notes.String
	return dec
}

// Verify interface compliance
var _ port.InvoiceRepository = (*InvoiceRepository)(nil)
