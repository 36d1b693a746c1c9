// Package leads provides the lead pipeline bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"lead_pipeline_backend/internal/events"
	apphttp "lead_pipeline_backend/internal/http"
	"lead_pipeline_backend/internal/leads/assignment"
	"lead_pipeline_backend/internal/leads/handler"
	"lead_pipeline_backend/internal/leads/management"
	"lead_pipeline_backend/internal/leads/pipeline"
	"lead_pipeline_backend/internal/leads/reminder"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/notification/dispatch"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/httpkit"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/metrics"
	"lead_pipeline_backend/platform/validator"

	"github.com/redis/go-redis/v9"
)

// SweepSecretHeader carries the shared secret of the internal sweep route.
const SweepSecretHeader = "X-Sweep-Secret"

// Deps groups the collaborators the leads module is built from. Redis is
// optional; without it the reminder sweep runs unlocked.
type Deps struct {
	Repo     repository.LeadsRepository
	Notifier dispatch.Notifier
	EventBus events.Bus
	Redis    *redis.Client
	Config   config.ReminderConfig
	Log      *logger.Logger
	Metrics  *metrics.Metrics
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	repo            repository.LeadsRepository
	handler         *handler.Handler
	reminderHandler *handler.ReminderHandler
	management      *management.Service
	pipeline        *pipeline.Service
	assignment      *assignment.Service
	sweep           *reminder.Sweep
	sweepSecret     string
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(deps Deps, val *validator.Validator) *Module {
	var locker reminder.Locker
	if deps.Redis != nil {
		locker = reminder.NewRedisLock(deps.Redis, deps.Config.GetReminderLockTTL())
	}

	// Create focused services (vertical slices)
	mgmtSvc := management.New(deps.Repo)
	pipelineSvc := pipeline.New(deps.Repo, deps.Notifier, deps.EventBus, deps.Log, deps.Metrics)
	assignmentSvc := assignment.New(deps.Repo, deps.Notifier, deps.EventBus, deps.Log, deps.Metrics)
	sweep := reminder.New(deps.Repo, deps.Notifier, deps.EventBus, locker, reminder.Options{
		IdleThreshold:    deps.Config.GetReminderIdleThreshold(),
		SLAWarningWindow: deps.Config.GetReminderSLAWarningWindow(),
	}, deps.Log, deps.Metrics)

	return &Module{
		repo:            deps.Repo,
		handler:         handler.New(mgmtSvc, pipelineSvc, assignmentSvc, val),
		reminderHandler: handler.NewReminderHandler(sweep),
		management:      mgmtSvc,
		pipeline:        pipelineSvc,
		assignment:      assignmentSvc,
		sweep:           sweep,
		sweepSecret:     deps.Config.GetReminderSweepSecret(),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// ManagementService returns the lead management service for external use.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// PipelineService returns the transition service for external use.
func (m *Module) PipelineService() *pipeline.Service {
	return m.pipeline
}

// AssignmentService returns the assignment engine for the scheduler.
func (m *Module) AssignmentService() *assignment.Service {
	return m.assignment
}

// ReminderSweep returns the reminder sweep for the scheduler.
func (m *Module) ReminderSweep() *reminder.Sweep {
	return m.sweep
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// All leads routes require authentication
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterTeamRoutes(ctx.Protected.Group("/team"))
	m.handler.RegisterMeRoutes(ctx.Protected.Group("/me"))

	// The sweep is triggered by an external cron holding the shared secret.
	internal := ctx.V1.Group("/internal")
	if ctx.InternalRateLimiter != nil {
		internal.Use(ctx.InternalRateLimiter.RateLimit())
	}
	internal.Use(httpkit.SharedSecretRequired(SweepSecretHeader, m.sweepSecret))
	m.reminderHandler.RegisterRoutes(internal)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
