package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lead_pipeline_backend/internal/events"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/notification/dispatch"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/metrics"

	"github.com/google/uuid"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []dispatch.Notification
}

func (r *recordingNotifier) Dispatch(n dispatch.Notification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return true
}

func (r *recordingNotifier) all() []dispatch.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dispatch.Notification(nil), r.sent...)
}

type heldLock struct{}

func (heldLock) Acquire(context.Context) (func(), bool, error) { return nil, false, nil }

var now = time.Date(2026, 4, 20, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store    *repository.Memory
	notifier *recordingNotifier
	sweep    *Sweep
	org      uuid.UUID
}

func newFixture(locker Locker) *fixture {
	log := logger.New("development")
	store := repository.NewMemory()
	notifier := &recordingNotifier{}
	opts := Options{IdleThreshold: 5 * 24 * time.Hour, SLAWarningWindow: 48 * time.Hour}
	return &fixture{
		store:    store,
		notifier: notifier,
		sweep:    New(store, notifier, events.NewInMemoryBus(log), locker, opts, log, metrics.NewNop()),
		org:      uuid.New(),
	}
}

func (f *fixture) lead(status domain.Status, assignee *uuid.UUID, updated time.Time) domain.Lead {
	return f.store.PutLead(domain.Lead{
		OrganizationID: f.org,
		CompanyName:    "Acme",
		Status:         status,
		AssignedToID:   assignee,
		CreatedAt:      updated,
		UpdatedAt:      updated,
	})
}

func TestSweepRemindsIdleLeadOncePerDay(t *testing.T) {
	f := newFixture(nil)
	owner := f.store.PutUser(domain.Manager{OrganizationID: f.org, Role: domain.RoleAccountManagerSmall, Active: true})
	lead := f.lead(domain.StatusContacted, &owner.ID, now.Add(-10*24*time.Hour))

	summary, err := f.sweep.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.RemindersSent != 1 {
		t.Fatalf("expected one reminder, got %+v", summary)
	}

	stored, _ := f.store.Get(context.Background(), lead.ID)
	today := repository.ReminderDay(now)
	if stored.LastReminderDate == nil || !stored.LastReminderDate.Equal(today) {
		t.Fatalf("expected reminder date %s, got %v", today, stored.LastReminderDate)
	}
	if stored.Status != lead.Status || stored.Version != lead.Version {
		t.Fatal("the sweep must not change status or version")
	}

	sent := f.notifier.all()
	if len(sent) != 1 || sent[0].RecipientID != owner.ID || sent[0].Kind != dispatch.KindLeadReminder {
		t.Fatalf("expected one reminder to the owner, got %+v", sent)
	}
	if sent[0].String(dispatch.PayloadReason) != ReasonIdle {
		t.Fatalf("expected idle reason, got %q", sent[0].String(dispatch.PayloadReason))
	}

	again, err := f.sweep.Run(context.Background(), now.Add(6*time.Hour))
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if again.RemindersSent != 0 || len(f.notifier.all()) != 1 {
		t.Fatalf("expected no reminder on a same-day rerun, got %+v", again)
	}

	tomorrow, err := f.sweep.Run(context.Background(), now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("next-day Run returned error: %v", err)
	}
	if tomorrow.RemindersSent != 1 {
		t.Fatalf("expected a reminder on the next day, got %+v", tomorrow)
	}
}

func TestSweepSkipsFreshAndTerminalLeads(t *testing.T) {
	f := newFixture(nil)
	owner := f.store.PutUser(domain.Manager{OrganizationID: f.org, Role: domain.RoleAccountManagerSmall, Active: true})
	f.lead(domain.StatusContacted, &owner.ID, now.Add(-2*24*time.Hour))
	f.lead(domain.StatusWon, &owner.ID, now.Add(-30*24*time.Hour))
	f.lead(domain.StatusCRMRejected, &owner.ID, now.Add(-30*24*time.Hour))

	summary, err := f.sweep.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Scanned != 0 || summary.RemindersSent != 0 {
		t.Fatalf("expected nothing to remind, got %+v", summary)
	}
}

func TestSweepRemindsApproachingSLADeadline(t *testing.T) {
	f := newFixture(nil)
	owner := f.store.PutUser(domain.Manager{OrganizationID: f.org, Role: domain.RoleAccountManagerMid, Active: true})
	deadline := now.Add(24 * time.Hour)
	f.store.PutLead(domain.Lead{
		OrganizationID: f.org,
		Status:         domain.StatusNegotiation,
		AssignedToID:   &owner.ID,
		Metadata:       domain.Metadata{SLADeadline: &deadline},
		CreatedAt:      now.Add(-time.Hour),
		UpdatedAt:      now.Add(-time.Hour),
	})

	summary, err := f.sweep.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.RemindersSent != 1 {
		t.Fatalf("expected one SLA reminder, got %+v", summary)
	}
	if reason := f.notifier.all()[0].String(dispatch.PayloadReason); reason != ReasonSLA {
		t.Fatalf("expected SLA reason, got %q", reason)
	}
}

func TestSweepRoutesUnassignedLeadsToReviewers(t *testing.T) {
	f := newFixture(nil)
	crm := f.store.PutUser(domain.Manager{OrganizationID: f.org, Role: domain.RoleCRMContent, Active: true})
	f.store.PutUser(domain.Manager{OrganizationID: f.org, Role: domain.RoleAdmin, Active: true})
	f.lead(domain.StatusPendingCRM, nil, now.Add(-7*24*time.Hour))

	if _, err := f.sweep.Run(context.Background(), now); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	sent := f.notifier.all()
	if len(sent) != 1 || sent[0].RecipientID != crm.ID {
		t.Fatalf("expected the CRM reviewer to be reminded, got %+v", sent)
	}
}

func TestSweepRoutesPoolLeadsToAssigners(t *testing.T) {
	f := newFixture(nil)
	admin := f.store.PutUser(domain.Manager{OrganizationID: f.org, Role: domain.RoleAdmin, Active: true})
	f.store.PutUser(domain.Manager{OrganizationID: f.org, Role: domain.RoleAccountManagerSmall, Active: true})
	f.lead(domain.StatusNew, nil, now.Add(-7*24*time.Hour))

	if _, err := f.sweep.Run(context.Background(), now); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	sent := f.notifier.all()
	if len(sent) != 1 || sent[0].RecipientID != admin.ID {
		t.Fatalf("expected the assigner to be reminded, got %+v", sent)
	}
}

func TestSweepStopsWhenContextCancelled(t *testing.T) {
	f := newFixture(nil)
	owner := f.store.PutUser(domain.Manager{OrganizationID: f.org, Role: domain.RoleAccountManagerSmall, Active: true})
	f.lead(domain.StatusContacted, &owner.ID, now.Add(-10*24*time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.sweep.Run(ctx, now)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.RemindersSent != 0 {
		t.Fatalf("expected no reminders, got %+v", summary)
	}
}

func TestSweepSkipsWhenLockHeld(t *testing.T) {
	f := newFixture(heldLock{})
	owner := f.store.PutUser(domain.Manager{OrganizationID: f.org, Role: domain.RoleAccountManagerSmall, Active: true})
	f.lead(domain.StatusContacted, &owner.ID, now.Add(-10*24*time.Hour))

	summary, err := f.sweep.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !summary.AlreadyRunning || len(f.notifier.all()) != 0 {
		t.Fatalf("expected the run to be skipped, got %+v", summary)
	}
}

func TestSweepLeavesUnreachableLeadUnstamped(t *testing.T) {
	f := newFixture(nil)
	lead := f.lead(domain.StatusNew, nil, now.Add(-7*24*time.Hour))

	summary, err := f.sweep.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.RemindersSent != 0 || summary.Skipped != 1 {
		t.Fatalf("expected the lead to be skipped, got %+v", summary)
	}
	stored, _ := f.store.Get(context.Background(), lead.ID)
	if stored.LastReminderDate != nil {
		t.Fatalf("expected no reminder stamp without recipients, got %v", stored.LastReminderDate)
	}

	admin := f.store.PutUser(domain.Manager{OrganizationID: f.org, Role: domain.RoleAdmin, Active: true})
	summary, err = f.sweep.Run(context.Background(), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	sent := f.notifier.all()
	if summary.RemindersSent != 1 || len(sent) != 1 || sent[0].RecipientID != admin.ID {
		t.Fatalf("expected a later run the same day to remind the new assigner, got %+v", summary)
	}
}
