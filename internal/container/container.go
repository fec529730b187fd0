// Package container wires repositories, services and adapters into a running
// application.
package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/medassist/claims-backoffice/internal/application/port"
	"github.com/medassist/claims-backoffice/internal/application/service"
	"github.com/medassist/claims-backoffice/internal/config"
	"github.com/medassist/claims-backoffice/internal/infrastructure/export"
	"github.com/medassist/claims-backoffice/internal/infrastructure/external/lark"
	"github.com/medassist/claims-backoffice/internal/infrastructure/notification"
	"github.com/medassist/claims-backoffice/internal/infrastructure/persistence/repository"
	"github.com/medassist/claims-backoffice/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/medassist/claims-backoffice/internal/interfaces/http"
	"github.com/medassist/claims-backoffice/pkg/database"
)

// Container holds all application components
type Container struct {
	cfg    *config.Config
	logger *zap.Logger

	db         *database.DB
	txDB       *sqlite.DB
	dispatcher *notification.Dispatcher

	AlertRepo        port.AlertRepository
	ClaimRepo        port.ClaimRepository
	StepRepo         port.StepRepository
	StayRepo         port.StayRepository
	InvoiceRepo      port.InvoiceRepository
	HistoryRepo      port.InvoiceHistoryRepository
	NotificationRepo port.NotificationRepository

	IntakeService     service.IntakeService
	WorkflowService   service.ClaimWorkflowService
	StayService       service.HospitalStayService
	InvoiceService    service.InvoiceApprovalService
	AccountingService service.AccountingService

	Server *httpserver.Server
}

// New builds the full dependency graph. The database is opened and migrated
// before any component is constructed.
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{cfg: cfg, logger: logger}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c.db = db

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	c.txDB = sqlite.NewDB(db.DB, logger)

	c.buildRepositories()
	c.buildDispatcher()
	c.buildServices()
	c.buildServer()

	return c, nil
}

func (c *Container) buildRepositories() {
	c.AlertRepo = repository.NewAlertRepository(c.db.DB, c.logger)
	c.ClaimRepo = repository.NewClaimRepository(c.db.DB, c.logger)
	c.StepRepo = repository.NewStepRepository(c.db.DB, c.logger)
	c.StayRepo = repository.NewStayRepository(c.db.DB, c.logger)
	c.InvoiceRepo = repository.NewInvoiceRepository(c.db.DB, c.logger)
	c.HistoryRepo = repository.NewInvoiceHistoryRepository(c.db.DB, c.logger)
	c.NotificationRepo = repository.NewNotificationRepository(c.db.DB, c.logger)
}

// buildDispatcher selects the notification transport: Lark when credentials
// are configured, otherwise the log sender.
func (c *Container) buildDispatcher() {
	var sender notification.Sender
	if c.cfg.Lark.AppID != "" {
		client := lark.NewClient(lark.Config{
			AppID:      c.cfg.Lark.AppID,
			AppSecret:  c.cfg.Lark.AppSecret,
			APITimeout: c.cfg.Lark.APITimeout,
		}, c.logger)
		sender = lark.NewSender(client, c.logger)
		c.logger.Info("Using Lark notification transport")
	} else {
		sender = notification.NewLogSender(c.logger)
		c.logger.Info("Using log notification transport")
	}

	c.dispatcher = notification.NewDispatcher(notification.Config{
		QueueSize:   c.cfg.Notification.QueueSize,
		SendTimeout: c.cfg.Notification.SendTimeout,
	}, c.NotificationRepo, sender, c.logger)
}

func (c *Container) buildServices() {
	serviceLogger := &zapLoggerAdapter{logger: c.logger}

	c.IntakeService = service.NewIntakeService(
		c.AlertRepo, c.ClaimRepo, c.txDB, c.dispatcher, serviceLogger)

	c.WorkflowService = service.NewClaimWorkflowService(
		c.ClaimRepo, c.AlertRepo, c.StepRepo, c.StayRepo, c.InvoiceRepo,
		service.NewBusinessRuleEngine(), c.txDB, c.dispatcher, serviceLogger)

	c.StayService = service.NewHospitalStayService(
		c.StayRepo, c.ClaimRepo, c.InvoiceRepo, c.HistoryRepo,
		c.txDB, c.dispatcher, serviceLogger)

	c.InvoiceService = service.NewInvoiceApprovalService(
		c.InvoiceRepo, c.HistoryRepo, c.StayRepo, c.ClaimRepo, c.AlertRepo,
		c.txDB, c.dispatcher, serviceLogger)

	writer := export.NewStatementWriter(c.cfg.Export.OutputDir, c.logger)
	c.AccountingService = service.NewAccountingService(c.InvoiceRepo, writer, serviceLogger)
}

func (c *Container) buildServer() {
	c.Server = httpserver.NewServer(httpserver.ServerConfig{
		Host:           c.cfg.Server.Host,
		Port:           c.cfg.Server.Port,
		ReadTimeout:    c.cfg.Server.ReadTimeout,
		WriteTimeout:   c.cfg.Server.WriteTimeout,
		DefaultTaxRate: c.cfg.Billing.DefaultTaxRate,
	}, c.IntakeService, c.WorkflowService, c.StayService,
		c.InvoiceService, c.AccountingService,
		&zapLoggerAdapter{logger: c.logger})
}

// Close shuts down background workers and the database connection
func (c *Container) Close() error {
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
		}
	}
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// zapLoggerAdapter adapts zap.Logger to the keysAndValues logger interfaces
// used by the service and http packages.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
