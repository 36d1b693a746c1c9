package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Periodic enqueues the recurring lead jobs on their cron specs.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
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

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})

	sweepTask, err := NewReminderSweepTask()
	if err != nil {
		return nil, err
	}
	if err := register(scheduler, cfg.GetReminderSweepCron(), sweepTask, queue); err != nil {
		return nil, err
	}

	routeTask, err := NewRoutePoolTask(RoutePoolPayload{})
	if err != nil {
		return nil, err
	}
	if err := register(scheduler, cfg.GetPoolRoutingCron(), routeTask, queue); err != nil {
		return nil, err
	}

	return &Periodic{scheduler: scheduler, log: log}, nil
}

// register schedules task on cronSpec; an empty cronSpec disables it.
// Runs are unique per minute and never retried.
func register(scheduler *asynq.Scheduler, cronSpec string, task *asynq.Task, queue string) error {
	if cronSpec == "" {
		return nil
	}
	_, err := scheduler.Register(cronSpec, task,
		asynq.Queue(queue),
		asynq.MaxRetry(0),
		asynq.Unique(time.Minute),
	)
	if err != nil {
		return fmt.Errorf("register %s on %q: %w", task.Type(), cronSpec, err)
	}
	return nil
}

// Run blocks until ctx is done.
func (p *Periodic) Run(ctx context.Context) error {
	if p == nil || p.scheduler == nil {
		return nil
	}
	if err := p.scheduler.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
	if p.log != nil {
		p.log.Info("periodic scheduler stopped")
	}
	return nil
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
