// Package reminder nudges owners of idle leads and leads approaching their
// SLA deadline, at most once per lead and calendar day.
package reminder

import (
	"context"
	"time"

	"lead_pipeline_backend/internal/access"
	"lead_pipeline_backend/internal/events"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/notification/dispatch"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/metrics"

	"github.com/google/uuid"
)

// Reminder reasons carried in the notification payload.
const (
	ReasonIdle = "idle"
	ReasonSLA  = "sla_deadline"
)

// Repository is the data access the sweep needs.
type Repository interface {
	repository.ReminderStore
	ListActiveUsers(ctx context.Context, organizationID uuid.UUID, roles []domain.Role) ([]domain.Manager, error)
}

type Options struct {
	IdleThreshold    time.Duration
	SLAWarningWindow time.Duration
	// Limit caps the candidates handled per run; zero uses the store default.
	Limit int
}

// Summary reports the outcome of one run.
type Summary struct {
	Scanned        int  `json:"scanned"`
	RemindersSent  int  `json:"remindersSent"`
	Skipped        int  `json:"skipped"`
	AlreadyRunning bool `json:"alreadyRunning,omitempty"`
}

type Sweep struct {
	repo     Repository
	notifier dispatch.Notifier
	bus      events.Bus
	locker   Locker
	opts     Options
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// New builds a sweep. locker may be nil when only one process runs sweeps.
func New(repo Repository, notifier dispatch.Notifier, bus events.Bus, locker Locker, opts Options, log *logger.Logger, m *metrics.Metrics) *Sweep {
	if opts.IdleThreshold <= 0 {
		opts.IdleThreshold = 5 * 24 * time.Hour
	}
	if opts.SLAWarningWindow < 0 {
		opts.SLAWarningWindow = 0
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Sweep{repo: repo, notifier: notifier, bus: bus, locker: locker, opts: opts, log: log, metrics: m}
}

// Run sends the reminders due at now. Each lead's stamp is committed on its
// own, so a cancelled run keeps the reminders it already sent.
func (s *Sweep) Run(ctx context.Context, now time.Time) (Summary, error) {
	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx)
		if err != nil {
			return Summary{}, err
		}
		if !ok {
			if s.log != nil {
				s.log.Info("reminder sweep already running elsewhere, skipping")
			}
			return Summary{AlreadyRunning: true}, nil
		}
		defer release()
	}

	started := time.Now()
	defer func() { s.metrics.SweepDuration.Observe(time.Since(started).Seconds()) }()

	day := repository.ReminderDay(now)
	candidates, err := s.repo.ListReminderCandidates(ctx, repository.ReminderCandidateParams{
		IdleBefore: now.Add(-s.opts.IdleThreshold),
		SLABefore:  now.Add(s.opts.SLAWarningWindow),
		Day:        day,
		Limit:      s.opts.Limit,
	})
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for _, lead := range candidates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Scanned++

		// A lead nobody can be reminded about stays unstamped so a later
		// run the same day can still reach it.
		recipients, err := s.recipients(ctx, lead)
		if err != nil || len(recipients) == 0 {
			if s.log != nil {
				s.log.Warn("no reminder recipient for lead", "lead_id", lead.ID.String(), "status", string(lead.Status), "error", err)
			}
			summary.Skipped++
			continue
		}

		stamped, err := s.repo.StampReminder(ctx, lead.ID, day)
		if err != nil {
			return summary, err
		}
		if !stamped {
			summary.Skipped++
			continue
		}

		s.remind(ctx, lead, recipients, now)
		summary.RemindersSent++
	}

	if s.log != nil {
		s.log.Info("reminder_sweep_completed",
			"scanned", summary.Scanned,
			"reminders_sent", summary.RemindersSent,
			"skipped", summary.Skipped,
		)
	}
	return summary, nil
}

// remind dispatches the reminder for one freshly stamped lead.
func (s *Sweep) remind(ctx context.Context, lead domain.Lead, recipients []uuid.UUID, now time.Time) {
	reason := ReasonIdle
	if lead.Metadata.SLADueWithin(now, s.opts.SLAWarningWindow) {
		reason = ReasonSLA
	}

	dispatch.FanOut(s.notifier, dispatch.Notification{
		OrganizationID: lead.OrganizationID,
		Kind:           dispatch.KindLeadReminder,
		Payload: map[string]any{
			dispatch.PayloadLeadID:      lead.ID.String(),
			dispatch.PayloadCompanyName: lead.CompanyName,
			dispatch.PayloadStatus:      string(lead.Status),
			dispatch.PayloadReason:      reason,
		},
	}, recipients, uuid.Nil)
	s.metrics.RemindersSent.Inc()

	if s.bus != nil {
		s.bus.Publish(ctx, events.ReminderDue{
			BaseEvent:      events.NewBaseEvent(),
			LeadID:         lead.ID,
			OrganizationID: lead.OrganizationID,
			Status:         string(lead.Status),
			Reason:         reason,
			RecipientIDs:   recipients,
		})
	}
}

// recipients is the assignee, or the people expected to act on an
// unassigned lead in its current status.
func (s *Sweep) recipients(ctx context.Context, lead domain.Lead) ([]uuid.UUID, error) {
	if lead.AssignedToID != nil {
		return []uuid.UUID{*lead.AssignedToID}, nil
	}

	users, err := s.repo.ListActiveUsers(ctx, lead.OrganizationID, access.ReminderRoles(lead.Status))
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}
