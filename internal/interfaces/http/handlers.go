package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medassist/claims-backoffice/internal/application/service"
	"github.com/medassist/claims-backoffice/internal/domain/entity"
	"github.com/medassist/claims-backoffice/pkg/utils"
)

// Actor identity headers. Authentication happens upstream; the gateway
// forwards the verified identity here.
const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	intakeService     service.IntakeService
	workflowService   service.ClaimWorkflowService
	stayService       service.HospitalStayService
	invoiceService    service.InvoiceApprovalService
	accountingService service.AccountingService
	defaultTaxRate    float64
	logger            Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	intakeService service.IntakeService,
	workflowService service.ClaimWorkflowService,
	stayService service.HospitalStayService,
	invoiceService service.InvoiceApprovalService,
	accountingService service.AccountingService,
	defaultTaxRate float64,
	logger Logger,
) *Handlers {
	return &Handlers{
		intakeService:     intakeService,
		workflowService:   workflowService,
		stayService:       stayService,
		invoiceService:    invoiceService,
		accountingService: accountingService,
		defaultTaxRate:    defaultTaxRate,
		logger:            logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateAlertRequest represents the body of POST /api/alerts
type CreateAlertRequest struct {
	ReporterID  string  `json:"reporter_id" binding:"required"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Priority    string  `json:"priority"`
	Description string  `json:"description"`
}

// CreateAlert handles POST /api/alerts
func (h *Handlers) CreateAlert(c *gin.Context) {
	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}
	if err := utils.ValidatePriority(req.Priority); err != nil {
		h.badRequest(c, err.Error(), nil)
		return
	}
	if err := utils.ValidateCoordinates(req.Latitude, req.Longitude); err != nil {
		h.badRequest(c, err.Error(), nil)
		return
	}

	alert, err := h.intakeService.CreateAlert(c.Request.Context(), service.AlertInput{
		ReporterID:  req.ReporterID,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Priority:    req.Priority,
		Description: utils.SanitizeString(req.Description),
	})
	if err != nil {
		h.serviceError(c, "create alert", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: alert})
}

// OpenClaimRequest represents the body of POST /api/claims
type OpenClaimRequest struct {
	AlertID              int64  `json:"alert_id" binding:"required"`
	SubscriptionID       int64  `json:"subscription_id" binding:"required"`
	CaseAgentID          string `json:"case_agent_id"`
	ReferringPhysicianID string `json:"referring_physician_id"`
}

// OpenClaim handles POST /api/claims
func (h *Handlers) OpenClaim(c *gin.Context) {
	var req OpenClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	claim, err := h.intakeService.OpenClaim(c.Request.Context(),
		req.AlertID, req.SubscriptionID, req.CaseAgentID, req.ReferringPhysicianID)
	if err != nil {
		h.serviceError(c, "open claim", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: claim})
}

// AssignHospitalRequest represents the body of PUT /api/claims/:id/hospital
type AssignHospitalRequest struct {
	HospitalID int64 `json:"hospital_id" binding:"required"`
}

// AssignHospital handles PUT /api/claims/:id/hospital
func (h *Handlers) AssignHospital(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req AssignHospitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	claim, err := h.intakeService.AssignHospital(c.Request.Context(), id, req.HospitalID, actor)
	if err != nil {
		h.serviceError(c, "assign hospital", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: claim})
}

// ListSteps handles GET /api/claims/:id/steps
func (h *Handlers) ListSteps(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	steps, err := h.workflowService.Reconcile(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, "list steps", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: steps})
}

// TransitionStepRequest represents the body of PUT /api/claims/:id/steps/:key
type TransitionStepRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// TransitionStep handles PUT /api/claims/:id/steps/:key
func (h *Handlers) TransitionStep(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req TransitionStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	step, err := h.workflowService.ApplyManualTransition(c.Request.Context(),
		id, c.Param("key"), entity.StepStatus(req.Status), actor, req.Notes)
	if err != nil {
		h.serviceError(c, "transition step", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: step})
}

// VerifyUrgency handles POST /api/claims/:id/verify-urgency
func (h *Handlers) VerifyUrgency(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	claim, err := h.workflowService.VerifyUrgency(c.Request.Context(), id, actor)
	if err != nil {
		h.serviceError(c, "verify urgency", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: claim})
}

// CreateStayRequest represents the body of POST /api/claims/:id/stay
type CreateStayRequest struct {
	DoctorID string `json:"doctor_id" binding:"required"`
	Notes    string `json:"notes"`
}

// CreateStay handles POST /api/claims/:id/stay
func (h *Handlers) CreateStay(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req CreateStayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	stay, err := h.stayService.Create(c.Request.Context(), id, req.DoctorID, req.Notes)
	if err != nil {
		h.serviceError(c, "create stay", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: stay})
}

// SubmitReportRequest represents the body of PUT /api/stays/:id/report
type SubmitReportRequest struct {
	Report     string `json:"report" binding:"required"`
	ActsCount  int    `json:"acts_count"`
	ExamsCount int    `json:"exams_count"`
	Terminate  bool   `json:"terminate"`
}

// SubmitReport handles PUT /api/stays/:id/report
func (h *Handlers) SubmitReport(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	stay, err := h.stayService.SubmitReport(c.Request.Context(), id, actor.ID, service.ReportFields{
		Report:     req.Report,
		ActsCount:  req.ActsCount,
		ExamsCount: req.ExamsCount,
		Terminate:  req.Terminate,
	})
	if err != nil {
		h.serviceError(c, "submit report", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: stay})
}

// ValidateStayRequest represents the body of POST /api/stays/:id/validation
type ValidateStayRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// ValidateStay handles POST /api/stays/:id/validation
func (h *Handlers) ValidateStay(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req ValidateStayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	stay, err := h.stayService.Validate(c.Request.Context(), id, actor.ID, req.Approve, req.Notes)
	if err != nil {
		h.serviceError(c, "validate stay", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: stay})
}

// IssueInvoiceRequest represents the body of POST /api/stays/:id/invoice.
// A missing tax_rate falls back to the configured default rate.
type IssueInvoiceRequest struct {
	TaxRate *float64             `json:"tax_rate"`
	Lines   []entity.InvoiceLine `json:"lines"`
}

// IssueInvoiceResponse represents the invoice issuance result
type IssueInvoiceResponse struct {
	Stay    *entity.HospitalStay `json:"stay"`
	Invoice *entity.Invoice      `json:"invoice"`
}

// IssueInvoice handles POST /api/stays/:id/invoice
func (h *Handlers) IssueInvoice(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req IssueInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	taxRate := h.defaultTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	stay, invoice, err := h.stayService.IssueInvoice(c.Request.Context(), id, actor, taxRate, req.Lines)
	if err != nil {
		h.serviceError(c, "issue invoice", err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    IssueInvoiceResponse{Stay: stay, Invoice: invoice},
	})
}

// ListInvoices handles GET /api/invoices?status=...
func (h *Handlers) ListInvoices(c *gin.Context) {
	status := c.DefaultQuery("status", entity.InvoiceStatusValidated.String())

	invoices, err := h.accountingService.ListByStatus(c.Request.Context(), entity.InvoiceStatus(status))
	if err != nil {
		h.serviceError(c, "list invoices", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: invoices})
}

// GetInvoice handles GET /api/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, "get invoice", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: invoice})
}

// GetInvoiceHistory handles GET /api/invoices/:id/history
func (h *Handlers) GetInvoiceHistory(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.invoiceService.GetHistory(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, "get invoice history", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// DecideStageRequest represents the body of POST /api/invoices/:id/decision
type DecideStageRequest struct {
	Stage   string `json:"stage" binding:"required"`
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// DecideInvoiceStage handles POST /api/invoices/:id/decision
func (h *Handlers) DecideInvoiceStage(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req DecideStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	invoice, err := h.invoiceService.DecideStage(c.Request.Context(),
		id, entity.Stage(req.Stage), actor, req.Approve, req.Notes)
	if err != nil {
		h.serviceError(c, "decide invoice stage", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: invoice})
}

// MarkInvoicePaid handles POST /api/invoices/:id/payment
func (h *Handlers) MarkInvoicePaid(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.MarkPaid(c.Request.Context(), id, actor)
	if err != nil {
		h.serviceError(c, "mark invoice paid", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: invoice})
}

// ExportStatementResponse represents the statement export result
type ExportStatementResponse struct {
	Path         string `json:"path"`
	InvoiceCount int    `json:"invoice_count"`
}

// ExportStatement handles POST /api/exports/statement
func (h *Handlers) ExportStatement(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	path, count, err := h.accountingService.ExportValidated(c.Request.Context(), actor)
	if err != nil {
		h.serviceError(c, "export statement", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    ExportStatementResponse{Path: path, InvoiceCount: count},
	})
}

// pathID parses a numeric path parameter, responding 400 on failure
func (h *Handlers) pathID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.badRequest(c, "invalid "+name+" parameter", err)
		return 0, false
	}
	return id, true
}

// actor extracts the acting user from identity headers, responding 400 when
// they are missing
func (h *Handlers) actor(c *gin.Context) (entity.Actor, bool) {
	actor := entity.Actor{
		ID:   c.GetHeader(headerActorID),
		Role: entity.Role(c.GetHeader(headerActorRole)),
	}
	if actor.ID == "" || actor.Role == "" {
		h.badRequest(c, "missing actor identity headers", nil)
		return entity.Actor{}, false
	}
	return actor, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	if err != nil {
		h.logger.Error("Bad request", "error", err)
	}
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// serviceError maps application errors to HTTP status codes
func (h *Handlers) serviceError(c *gin.Context, op string, err error) {
	h.logger.Error("Request failed", "op", op, "error", err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrStageAlreadyDecided):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidTransition):
		status = http.StatusConflict
	}

	c.JSON(status, Response{Success: false, Error: err.Error()})
}
