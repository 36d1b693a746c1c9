package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"lead_pipeline_backend/internal/leads/assignment"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/reminder"
	"lead_pipeline_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type fakeSweeper struct {
	summary reminder.Summary
	err     error
	calls   int
	at      time.Time
}

func (f *fakeSweeper) Run(_ context.Context, now time.Time) (reminder.Summary, error) {
	f.calls++
	f.at = now
	return f.summary, f.err
}

type fakeRouter struct {
	tiers []domain.Tier
	err   error
}

func (f *fakeRouter) RouteAllPools(_ context.Context, tier domain.Tier) (assignment.RouteSummary, error) {
	f.tiers = append(f.tiers, tier)
	return assignment.RouteSummary{}, f.err
}

func newTestWorker(sweep Sweeper, router PoolRouter, now time.Time) *Worker {
	return &Worker{
		sweep:  sweep,
		router: router,
		log:    logger.New("test"),
		now:    func() time.Time { return now },
	}
}

func TestReminderSweepTaskRunsSweepAtWorkerTime(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	sweep := &fakeSweeper{summary: reminder.Summary{Scanned: 3, RemindersSent: 2}}
	w := newTestWorker(sweep, &fakeRouter{}, now)

	task, err := NewReminderSweepTask()
	if err != nil {
		t.Fatalf("NewReminderSweepTask returned error: %v", err)
	}
	if err := w.handleReminderSweep(context.Background(), task); err != nil {
		t.Fatalf("handleReminderSweep returned error: %v", err)
	}
	if sweep.calls != 1 || !sweep.at.Equal(now) {
		t.Fatalf("expected one sweep at %s, got %d at %s", now, sweep.calls, sweep.at)
	}
}

func TestReminderSweepTaskIgnoresHeldLock(t *testing.T) {
	w := newTestWorker(&fakeSweeper{summary: reminder.Summary{AlreadyRunning: true}}, &fakeRouter{}, time.Now())
	task, _ := NewReminderSweepTask()

	if err := w.handleReminderSweep(context.Background(), task); err != nil {
		t.Fatalf("expected held lock to be a no-op, got %v", err)
	}
}

func TestReminderSweepFailureSkipsRetry(t *testing.T) {
	w := newTestWorker(&fakeSweeper{err: errors.New("db down")}, &fakeRouter{}, time.Now())
	task, _ := NewReminderSweepTask()

	err := w.handleReminderSweep(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestRoutePoolTaskPassesTier(t *testing.T) {
	router := &fakeRouter{}
	w := newTestWorker(&fakeSweeper{}, router, time.Now())

	all, _ := NewRoutePoolTask(RoutePoolPayload{})
	large, _ := NewRoutePoolTask(RoutePoolPayload{Tier: "large"})
	for _, task := range []*asynq.Task{all, large} {
		if err := w.handleRoutePool(context.Background(), task); err != nil {
			t.Fatalf("handleRoutePool returned error: %v", err)
		}
	}

	if len(router.tiers) != 2 || router.tiers[0] != "" || router.tiers[1] != domain.TierLarge {
		t.Fatalf("unexpected tiers routed: %v", router.tiers)
	}
}

func TestRoutePoolTaskRejectsUnknownTier(t *testing.T) {
	router := &fakeRouter{}
	w := newTestWorker(&fakeSweeper{}, router, time.Now())
	task, _ := NewRoutePoolTask(RoutePoolPayload{Tier: "huge"})

	if err := w.handleRoutePool(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
	if len(router.tiers) != 0 {
		t.Fatal("expected no routing for an unknown tier")
	}
}

func TestParseRoutePoolPayloadAcceptsEmptyBody(t *testing.T) {
	payload, err := ParseRoutePoolPayload(asynq.NewTask(TaskRoutePool, nil))
	if err != nil {
		t.Fatalf("ParseRoutePoolPayload returned error: %v", err)
	}
	if payload.Tier != "" {
		t.Fatalf("expected empty tier, got %q", payload.Tier)
	}
}
