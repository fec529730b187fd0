package service

import (
	"context"

	"github.com/medassist/claims-backoffice/internal/domain/entity"
)

// memStore is a shared in-memory backing store for the repository mocks
type memStore struct {
	alerts   map[int64]*entity.Alert
	claims   map[int64]*entity.Claim
	steps    map[int64]*entity.ProcessStep
	stays    map[int64]*entity.HospitalStay
	invoices map[int64]*entity.Invoice
	history  []*entity.InvoiceHistoryEntry
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		alerts:   make(map[int64]*entity.Alert),
		claims:   make(map[int64]*entity.Claim),
		steps:    make(map[int64]*entity.ProcessStep),
		stays:    make(map[int64]*entity.HospitalStay),
		invoices: make(map[int64]*entity.Invoice),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

type mockAlertRepo struct{ store *memStore }

func (m *mockAlertRepo) Create(ctx context.Context, alert *entity.Alert) error {
	alert.ID = m.store.id()
	m.store.alerts[alert.ID] = alert
	return nil
}

func (m *mockAlertRepo) GetByID(ctx context.Context, id int64) (*entity.Alert, error) {
	return m.store.alerts[id], nil
}

func (m *mockAlertRepo) Update(ctx context.Context, alert *entity.Alert) error {
	m.store.alerts[alert.ID] = alert
	return nil
}

type mockClaimRepo struct{ store *memStore }

func (m *mockClaimRepo) Create(ctx context.Context, claim *entity.Claim) error {
	claim.ID = m.store.id()
	m.store.claims[claim.ID] = claim
	return nil
}

func (m *mockClaimRepo) GetByID(ctx context.Context, id int64) (*entity.Claim, error) {
	return m.store.claims[id], nil
}

func (m *mockClaimRepo) GetByAlertID(ctx context.Context, alertID int64) (*entity.Claim, error) {
	for _, c := range m.store.claims {
		if c.AlertID == alertID {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockClaimRepo) Update(ctx context.Context, claim *entity.Claim) error {
	m.store.claims[claim.ID] = claim
	return nil
}

type mockStepRepo struct {
	store   *memStore
	creates int
	updates int
}

func (m *mockStepRepo) Create(ctx context.Context, step *entity.ProcessStep) error {
	step.ID = m.store.id()
	m.store.steps[step.ID] = step
	m.creates++
	return nil
}

func (m *mockStepRepo) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ProcessStep, error) {
	var out []*entity.ProcessStep
	for _, st := range m.store.steps {
		if st.ClaimID == claimID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (m *mockStepRepo) Update(ctx context.Context, step *entity.ProcessStep) error {
	m.store.steps[step.ID] = step
	m.updates++
	return nil
}

type mockStayRepo struct{ store *memStore }

func (m *mockStayRepo) Create(ctx context.Context, stay *entity.HospitalStay) error {
	stay.ID = m.store.id()
	m.store.stays[stay.ID] = stay
	return nil
}

func (m *mockStayRepo) GetByID(ctx context.Context, id int64) (*entity.HospitalStay, error) {
	return m.store.stays[id], nil
}

func (m *mockStayRepo) GetByClaimID(ctx context.Context, claimID int64) (*entity.HospitalStay, error) {
	for _, st := range m.store.stays {
		if st.ClaimID == claimID {
			return st, nil
		}
	}
	return nil, nil
}

func (m *mockStayRepo) Update(ctx context.Context, stay *entity.HospitalStay) error {
	m.store.stays[stay.ID] = stay
	return nil
}

type mockInvoiceRepo struct{ store *memStore }

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	invoice.ID = m.store.id()
	m.store.invoices[invoice.ID] = invoice
	return nil
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	return m.store.invoices[id], nil
}

func (m *mockInvoiceRepo) GetByStayID(ctx context.Context, stayID int64) (*entity.Invoice, error) {
	for _, inv := range m.store.invoices {
		if inv.StayID == stayID {
			return inv, nil
		}
	}
	return nil, nil
}

func (m *mockInvoiceRepo) ListByStatus(ctx context.Context, status entity.InvoiceStatus) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	for _, inv := range m.store.invoices {
		if inv.Status == status {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *mockInvoiceRepo) Update(ctx context.Context, invoice *entity.Invoice) error {
	m.store.invoices[invoice.ID] = invoice
	return nil
}

type mockHistoryRepo struct{ store *memStore }

func (m *mockHistoryRepo) Create(ctx context.Context, entry *entity.InvoiceHistoryEntry) error {
	entry.ID = m.store.id()
	m.store.history = append(m.store.history, entry)
	return nil
}

func (m *mockHistoryRepo) GetByInvoiceID(ctx context.Context, invoiceID int64) ([]*entity.InvoiceHistoryEntry, error) {
	var out []*entity.InvoiceHistoryEntry
	for _, e := range m.store.history {
		if e.InvoiceID == invoiceID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// sentNotification records one dispatched notification
type sentNotification struct {
	Recipients []string
	Title      string
	Message    string
}

type mockDispatcher struct {
	sent []sentNotification
}

func (m *mockDispatcher) Notify(ctx context.Context, recipientIDs []string, title, message string, relatedEntity string, relatedID int64) {
	m.sent = append(m.sent, sentNotification{Recipients: recipientIDs, Title: title, Message: message})
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// fixture bundles the store, mocks and fully wired services for one test
type fixture struct {
	store      *memStore
	alertRepo  *mockAlertRepo
	claimRepo  *mockClaimRepo
	stepRepo   *mockStepRepo
	stayRepo   *mockStayRepo
	invRepo    *mockInvoiceRepo
	histRepo   *mockHistoryRepo
	dispatcher *mockDispatcher

	intake   IntakeService
	workflow ClaimWorkflowService
	stays    HospitalStayService
	invoices InvoiceApprovalService
}

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{
		store:      store,
		alertRepo:  &mockAlertRepo{store: store},
		claimRepo:  &mockClaimRepo{store: store},
		stepRepo:   &mockStepRepo{store: store},
		stayRepo:   &mockStayRepo{store: store},
		invRepo:    &mockInvoiceRepo{store: store},
		histRepo:   &mockHistoryRepo{store: store},
		dispatcher: &mockDispatcher{},
	}

	tx := &mockTxManager{}
	logger := &mockLogger{}

	f.intake = NewIntakeService(f.alertRepo, f.claimRepo, tx, f.dispatcher, logger)
	f.workflow = NewClaimWorkflowService(f.claimRepo, f.alertRepo, f.stepRepo,
		f.stayRepo, f.invRepo, NewBusinessRuleEngine(), tx, f.dispatcher, logger)
	f.stays = NewHospitalStayService(f.stayRepo, f.claimRepo, f.invRepo,
		f.histRepo, tx, f.dispatcher, logger)
	f.invoices = NewInvoiceApprovalService(f.invRepo, f.histRepo, f.stayRepo,
		f.claimRepo, f.alertRepo, tx, f.dispatcher, logger)

	return f
}

// seedClaim creates an alert and an open claim ready for workflow tests
func (f *fixture) seedClaim(ctx context.Context) (*entity.Alert, *entity.Claim) {
	alert, _ := f.intake.CreateAlert(ctx, AlertInput{
		ReporterID:  "subscriber-7",
		Priority:    "high",
		Description: "chest pain",
	})
	claim, _ := f.intake.OpenClaim(ctx, alert.ID, 42, "agent-1", "referent-1")
	return alert, claim
}
