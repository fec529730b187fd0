package service

import (
	"context"
	"fmt"
	"time"

	"github.com/medassist/claims-backoffice/internal/application/port"
	"github.com/medassist/claims-backoffice/internal/domain/entity"
)

// StatementWriter renders a batch of invoices as an accounting statement file
type StatementWriter interface {
	Write(invoices []*entity.Invoice, asOf time.Time) (string, error)
}

// AccountingService produces accounting exports for the compta pole
type AccountingService interface {
	ExportValidated(ctx context.Context, actor entity.Actor) (string, int, error)
	ListByStatus(ctx context.Context, status entity.InvoiceStatus) ([]*entity.Invoice, error)
}

type accountingService struct {
	invoiceRepo port.InvoiceRepository
	writer      StatementWriter
	logger      Logger
}

// NewAccountingService creates a new AccountingService
func NewAccountingService(invoiceRepo port.InvoiceRepository, writer StatementWriter, logger Logger) AccountingService {
	return &accountingService{
		invoiceRepo: invoiceRepo,
		writer:      writer,
		logger:      logger,
	}
}

// ExportValidated implements AccountingService. It writes a statement of all
// invoices awaiting payment and returns the file path and invoice count.
func (s *accountingService) ExportValidated(ctx context.Context, actor entity.Actor) (string, int, error) {
	if !actor.HasAnyRole(entity.RoleCompta) {
		return "", 0, fmt.Errorf("%w: role %s cannot export statements", ErrUnauthorized, actor.Role)
	}

	invoices, err := s.invoiceRepo.ListByStatus(ctx, entity.InvoiceStatusValidated)
	if err != nil {
		return "", 0, fmt.Errorf("list validated invoices: %w", err)
	}

	path, err := s.writer.Write(invoices, time.Now())
	if err != nil {
		return "", 0, fmt.Errorf("write statement: %w", err)
	}

	s.logger.Info("Statement exported", "path", path, "invoice_count", len(invoices))
	return path, len(invoices), nil
}

// ListByStatus implements AccountingService
func (s *accountingService) ListByStatus(ctx context.Context, status entity.InvoiceStatus) ([]*entity.Invoice, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown invoice status %q", ErrInvalidTransition, status)
	}
	return s.invoiceRepo.ListByStatus(ctx, status)
}
