package port

import (
	"context"

	"github.com/medassist/claims-backoffice/internal/domain/entity"
)

// AlertRepository defines persistence operations for Alert
type AlertRepository interface {
	Create(ctx context.Context, alert *entity.Alert) error
	GetByID(ctx context.Context, id int64) (*entity.Alert, error)
	Update(ctx context.Context, alert *entity.Alert) error
}

// ClaimRepository defines persistence operations for Claim
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, id int64) (*entity.Claim, error)
	GetByAlertID(ctx context.Context, alertID int64) (*entity.Claim, error)
	Update(ctx context.Context, claim *entity.Claim) error
}

// StepRepository defines persistence operations for ProcessStep
type StepRepository interface {
	Create(ctx context.Context, step *entity.ProcessStep) error
	GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ProcessStep, error)
	Update(ctx context.Context, step *entity.ProcessStep) error
}

// StayRepository defines persistence operations for HospitalStay
type StayRepository interface {
	Create(ctx context.Context, stay *entity.HospitalStay) error
	GetByID(ctx context.Context, id int64) (*entity.HospitalStay, error)
	GetByClaimID(ctx context.Context, claimID int64) (*entity.HospitalStay, error)
	Update(ctx context.Context, stay *entity.HospitalStay) error
}

// InvoiceRepository defines persistence operations for Invoice
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)
	GetByStayID(ctx context.Context, stayID int64) (*entity.Invoice, error)
	ListByStatus(ctx context.Context, status entity.InvoiceStatus) ([]*entity.Invoice, error)
	Update(ctx context.Context, invoice *entity.Invoice) error
}

// InvoiceHistoryRepository defines persistence operations for the append-only
// invoice audit trail
type InvoiceHistoryRepository interface {
	Create(ctx context.Context, entry *entity.InvoiceHistoryEntry) error
	GetByInvoiceID(ctx context.Context, invoiceID int64) ([]*entity.InvoiceHistoryEntry, error)
}

// NotificationRepository defines persistence operations for outbound
// notification records
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	GetByDedupKey(ctx context.Context, key string) (*entity.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
