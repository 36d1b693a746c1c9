package dispatch

import (
	"context"
	"sync"
	"time"

	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/metrics"
)

const (
	defaultWorkers     = 4
	defaultBufferSize  = 256
	defaultSendTimeout = 10 * time.Second
)

type Options struct {
	Workers     int
	BufferSize  int
	SendTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = defaultWorkers
	}
	if o.BufferSize < 1 {
		o.BufferSize = defaultBufferSize
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = defaultSendTimeout
	}
	return o
}

// Dispatcher queues notifications on a bounded buffer drained by a fixed
// worker pool. Each notification gets exactly one Send attempt.
type Dispatcher struct {
	sink    Sink
	opts    Options
	queue   chan Notification
	log     *logger.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ Notifier = (*Dispatcher)(nil)

// New starts the worker pool. Call Close to drain and stop it.
func New(sink Sink, opts Options, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	opts = opts.withDefaults()
	if m == nil {
		m = metrics.NewNop()
	}

	d := &Dispatcher{
		sink:    sink,
		opts:    opts,
		queue:   make(chan Notification, opts.BufferSize),
		log:     log,
		metrics: m,
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch enqueues n and returns immediately. It reports false when the
// notification was dropped because the buffer is full or the dispatcher is
// closed.
func (d *Dispatcher) Dispatch(n Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(n, "dispatcher closed")
		return false
	}

	select {
	case d.queue <- n:
		return true
	default:
		d.drop(n, "dispatch buffer full")
		return false
	}
}

func (d *Dispatcher) drop(n Notification, reason string) {
	d.metrics.NotificationsDropped.Inc()
	if d.log != nil {
		d.log.Warn("notification dropped",
			"reason", reason,
			"kind", string(n.Kind),
			"recipientId", n.RecipientID.String(),
		)
	}
}

// Close stops accepting notifications, delivers everything already queued
// and waits for the workers to exit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.metrics.NotificationsFailed.WithLabelValues(string(n.Kind)).Inc()
			if d.log != nil {
				d.log.Error("notification sink panicked", "kind", string(n.Kind), "panic", r)
			}
		}
	}()

	if err := d.sink.Send(ctx, n); err != nil {
		d.metrics.NotificationsFailed.WithLabelValues(string(n.Kind)).Inc()
		if d.log != nil {
			d.log.NotificationFailed(n.RecipientID.String(), string(n.Kind), err)
		}
		return
	}
	d.metrics.NotificationsSent.WithLabelValues(string(n.Kind)).Inc()
}
