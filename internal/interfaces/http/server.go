// Package http provides the HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application
// service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medassist/claims-backoffice/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// DefaultTaxRate applies to invoice issuance requests that omit an
	// explicit tax_rate.
	DefaultTaxRate float64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config            ServerConfig
	httpServer        *http.Server
	router            *gin.Engine
	intakeService     service.IntakeService
	workflowService   service.ClaimWorkflowService
	stayService       service.HospitalStayService
	invoiceService    service.InvoiceApprovalService
	accountingService service.AccountingService
	logger            Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	intakeService service.IntakeService,
	workflowService service.ClaimWorkflowService,
	stayService service.HospitalStayService,
	invoiceService service.InvoiceApprovalService,
	accountingService service.AccountingService,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:            config,
		router:            router,
		intakeService:     intakeService,
		workflowService:   workflowService,
		stayService:       stayService,
		invoiceService:    invoiceService,
		accountingService: accountingService,
		logger:            logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.intakeService, s.workflowService, s.stayService,
		s.invoiceService, s.accountingService, s.config.DefaultTaxRate, s.logger)

	// Health check
	s.router.GET("/health", handlers.HealthCheck)

	// API routes
	api := s.router.Group("/api")
	{
		// Intake
		api.POST("/alerts", handlers.CreateAlert)
		api.POST("/claims", handlers.OpenClaim)
		api.PUT("/claims/:id/hospital", handlers.AssignHospital)

		// Claim workflow
		api.GET("/claims/:id/steps", handlers.ListSteps)
		api.PUT("/claims/:id/steps/:key", handlers.TransitionStep)
		api.POST("/claims/:id/verify-urgency", handlers.VerifyUrgency)

		// Hospital stays
		api.POST("/claims/:id/stay", handlers.CreateStay)
		api.PUT("/stays/:id/report", handlers.SubmitReport)
		api.POST("/stays/:id/validation", handlers.ValidateStay)
		api.POST("/stays/:id/invoice", handlers.IssueInvoice)

		// Invoice approval pipeline
		api.GET("/invoices", handlers.ListInvoices)
		api.GET("/invoices/:id", handlers.GetInvoice)
		api.GET("/invoices/:id/history", handlers.GetInvoiceHistory)
		api.POST("/invoices/:id/decision", handlers.DecideInvoiceStage)
		api.POST("/invoices/:id/payment", handlers.MarkInvoicePaid)

		// Accounting
		api.POST("/exports/statement", handlers.ExportStatement)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
