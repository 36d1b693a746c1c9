// Package notification delivers lead notifications to the in-app inbox,
// email and the message broker, and exposes the inbox over HTTP.
// Domain modules only see the dispatch.Notifier; sinks and providers stay here.
package notification

import (
	"context"

	"lead_pipeline_backend/internal/email"
	"lead_pipeline_backend/internal/events"
	apphttp "lead_pipeline_backend/internal/http"
	"lead_pipeline_backend/internal/notification/broker"
	"lead_pipeline_backend/internal/notification/dispatch"
	notifhandler "lead_pipeline_backend/internal/notification/handler"
	"lead_pipeline_backend/internal/notification/inapp"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig combines the config interfaces the notification module reads.
type ModuleConfig interface {
	config.NotificationConfig
	config.EmailConfig
	config.AMQPConfig
}

// Module handles notification delivery and the in-app inbox routes.
type Module struct {
	log          *logger.Logger
	inAppService *inapp.Service
	inAppHandler *notifhandler.HTTPHandler
	email        *emailSink
	publisher    *broker.Publisher
	dispatcher   *dispatch.Dispatcher
}

// New builds the sinks enabled by cfg and starts the dispatcher.
func New(pool *pgxpool.Pool, cfg ModuleConfig, log *logger.Logger, m *metrics.Metrics) (*Module, error) {
	return newModule(inapp.NewRepository(pool), cfg, log, m)
}

func newModule(store inapp.Store, cfg ModuleConfig, log *logger.Logger, m *metrics.Metrics) (*Module, error) {
	inAppService := inapp.NewService(store, log)
	mod := &Module{
		log:          log,
		inAppService: inAppService,
		inAppHandler: notifhandler.NewHTTPHandler(inAppService),
	}

	sinks := dispatch.MultiSink{inAppService}

	if cfg.IsEmailEnabled() {
		mod.email = &emailSink{
			sender: email.NewSMTPSender(
				cfg.GetSMTPHost(),
				cfg.GetSMTPPort(),
				cfg.GetSMTPUsername(),
				cfg.GetSMTPPassword(),
				cfg.GetEmailFromAddress(),
				cfg.GetEmailFromName(),
			),
			baseURL: cfg.GetAppBaseURL(),
		}
		sinks = append(sinks, mod.email)
	}

	if cfg.IsAMQPEnabled() {
		publisher, err := broker.Dial(cfg.GetAMQPURL(), cfg.GetAMQPExchange())
		if err != nil {
			return nil, err
		}
		mod.publisher = publisher
		sinks = append(sinks, publisher)
		if log != nil {
			log.Info("notification broker sink enabled", "exchange", cfg.GetAMQPExchange())
		}
	}

	mod.dispatcher = dispatch.New(sinks, dispatch.Options{
		Workers:     cfg.GetNotificationWorkers(),
		BufferSize:  cfg.GetNotificationBufferSize(),
		SendTimeout: cfg.GetNotificationSendTimeout(),
	}, log, m)

	return mod, nil
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes mounts the inbox routes on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.inAppHandler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

// Notifier returns the non-blocking entry point used by domain modules.
func (m *Module) Notifier() dispatch.Notifier { return m.dispatcher }

// InAppService returns the inbox service for external use.
func (m *Module) InAppService() *inapp.Service { return m.inAppService }

// SetRecipientDirectory wires the lookup the email sink resolves addresses
// with. It must be called before the first notification is dispatched.
func (m *Module) SetRecipientDirectory(directory RecipientDirectory) {
	if m.email != nil {
		m.email.directory = directory
	}
}

// RegisterHandlers subscribes to the reminder events for the delivery log.
// Transitions and assignments are logged by the services that commit them.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ReminderDue{}.EventName(), m)
}

// Handle records due reminders. Delivery itself happens through the
// dispatcher, so a failing subscriber never affects a notification.
func (m *Module) Handle(_ context.Context, event events.Event) error {
	if m.log == nil {
		return nil
	}
	if e, ok := event.(events.ReminderDue); ok {
		m.log.Info("lead reminder due",
			"leadId", e.LeadID,
			"status", e.Status,
			"reason", e.Reason,
			"recipients", len(e.RecipientIDs),
		)
	}
	return nil
}

// Close drains the dispatcher and releases the broker connection.
func (m *Module) Close() {
	m.dispatcher.Close()
	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil && m.log != nil {
			m.log.Error("failed to close notification broker", "error", err)
		}
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
