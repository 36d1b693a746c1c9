package scheduler

import (
	"context"
	"fmt"
	"time"

	"lead_pipeline_backend/internal/leads/assignment"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/reminder"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Sweeper runs one reminder sweep.
type Sweeper interface {
	Run(ctx context.Context, now time.Time) (reminder.Summary, error)
}

// PoolRouter balances unassigned leads across all organizations.
type PoolRouter interface {
	RouteAllPools(ctx context.Context, tier domain.Tier) (assignment.RouteSummary, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sweep  Sweeper
	router PoolRouter
	log    *logger.Logger
	now    func() time.Time
}

func NewWorker(cfg config.SchedulerConfig, sweep Sweeper, router PoolRouter, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		sweep:  sweep,
		router: router,
		log:    log,
		now:    time.Now,
	}

	mux.HandleFunc(TaskReminderSweep, w.handleReminderSweep)
	mux.HandleFunc(TaskRoutePool, w.handleRoutePool)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleReminderSweep(ctx context.Context, _ *asynq.Task) error {
	summary, err := w.sweep.Run(ctx, w.now())
	if err != nil {
		return fmt.Errorf("reminder sweep: %v: %w", err, asynq.SkipRetry)
	}
	if summary.AlreadyRunning {
		w.log.Info("reminder sweep skipped, another run holds the lock")
		return nil
	}
	w.log.Info("reminder sweep finished",
		"scanned", summary.Scanned,
		"remindersSent", summary.RemindersSent,
		"skipped", summary.Skipped,
	)
	return nil
}

func (w *Worker) handleRoutePool(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRoutePoolPayload(task)
	if err != nil {
		return fmt.Errorf("decode route pool payload: %v: %w", err, asynq.SkipRetry)
	}

	var tier domain.Tier
	if payload.Tier != "" {
		parsed, ok := domain.ParseTier(payload.Tier)
		if !ok {
			return fmt.Errorf("unknown tier %q: %w", payload.Tier, asynq.SkipRetry)
		}
		tier = parsed
	}

	if _, err := w.router.RouteAllPools(ctx, tier); err != nil {
		return fmt.Errorf("route pool: %v: %w", err, asynq.SkipRetry)
	}
	return nil
}
