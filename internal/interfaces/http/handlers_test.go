package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/medassist/claims-backoffice/internal/application/service"
	"github.com/medassist/claims-backoffice/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

// stubStayService records the parameters of the last IssueInvoice call.
// The embedded interface panics for everything else; the tests below only
// exercise invoice issuance.
type stubStayService struct {
	service.HospitalStayService
	gotTaxRate float64
	gotLines   []entity.InvoiceLine
}

func (s *stubStayService) IssueInvoice(ctx context.Context, stayID int64, actor entity.Actor, taxRate float64, customLines []entity.InvoiceLine) (*entity.HospitalStay, *entity.Invoice, error) {
	s.gotTaxRate = taxRate
	s.gotLines = customLines
	return &entity.HospitalStay{ID: stayID}, &entity.Invoice{StayID: stayID}, nil
}

func issueInvoiceRequest(t *testing.T, stays service.HospitalStayService, defaultTaxRate float64, body string) *httptest.ResponseRecorder {
	t.Helper()

	h := NewHandlers(nil, nil, stays, nil, nil, defaultTaxRate, nopLogger{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/api/stays/5/invoice", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerActorID, "sinistre-1")
	req.Header.Set(headerActorRole, entity.RoleSinistre.String())
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "5"}}

	h.IssueInvoice(c)
	return w
}

func TestIssueInvoice_OmittedTaxRateUsesDefault(t *testing.T) {
	stays := &stubStayService{}

	w := issueInvoiceRequest(t, stays, 0.20, `{}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if stays.gotTaxRate != 0.20 {
		t.Errorf("tax rate = %v, want default 0.20", stays.gotTaxRate)
	}
}

func TestIssueInvoice_ExplicitTaxRateOverridesDefault(t *testing.T) {
	stays := &stubStayService{}

	w := issueInvoiceRequest(t, stays, 0.20, `{"tax_rate": 0.05}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if stays.gotTaxRate != 0.05 {
		t.Errorf("tax rate = %v, want 0.05", stays.gotTaxRate)
	}
}

func TestIssueInvoice_ExplicitZeroTaxRateIsKept(t *testing.T) {
	stays := &stubStayService{}

	w := issueInvoiceRequest(t, stays, 0.20, `{"tax_rate": 0}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if stays.gotTaxRate != 0 {
		t.Errorf("tax rate = %v, want 0", stays.gotTaxRate)
	}
}
