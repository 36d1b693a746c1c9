package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestNotification(kind Kind) Notification {
	return Notification{
		OrganizationID: uuid.New(),
		RecipientID:    uuid.New(),
		Kind:           kind,
		Payload:        map[string]any{PayloadLeadID: uuid.NewString()},
	}
}

func TestDispatcherDeliversQueuedNotificationsOnClose(t *testing.T) {
	var delivered atomic.Int32
	sink := SinkFunc(func(context.Context, Notification) error {
		delivered.Add(1)
		return nil
	})

	d := New(sink, Options{Workers: 2, BufferSize: 16}, logger.New("development"), metrics.NewNop())
	for i := 0; i < 10; i++ {
		if !d.Dispatch(newTestNotification(KindLeadAssigned)) {
			t.Fatalf("dispatch %d unexpectedly dropped", i)
		}
	}
	d.Close()

	if got := delivered.Load(); got != 10 {
		t.Fatalf("expected 10 deliveries after Close, got %d", got)
	}
}

func TestDispatcherDropsWhenBufferFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	sink := SinkFunc(func(context.Context, Notification) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})

	m := metrics.NewNop()
	d := New(sink, Options{Workers: 1, BufferSize: 1}, logger.New("development"), m)

	// The worker takes the first notification and blocks; the second fills the buffer.
	d.Dispatch(newTestNotification(KindLeadReminder))
	<-started
	if !d.Dispatch(newTestNotification(KindLeadReminder)) {
		t.Fatal("expected second notification to fit in the buffer")
	}

	begin := time.Now()
	if d.Dispatch(newTestNotification(KindLeadReminder)) {
		t.Fatal("expected third notification to be dropped")
	}
	if time.Since(begin) > 100*time.Millisecond {
		t.Fatal("expected Dispatch to return without waiting for the sink")
	}
	if got := testutil.ToFloat64(m.NotificationsDropped); got != 1 {
		t.Fatalf("expected 1 dropped notification, got %v", got)
	}

	close(release)
	d.Close()
}

func TestDispatcherAttemptsFailedSendOnce(t *testing.T) {
	var attempts atomic.Int32
	sink := SinkFunc(func(context.Context, Notification) error {
		attempts.Add(1)
		return errors.New("smtp unavailable")
	})

	m := metrics.NewNop()
	d := New(sink, Options{Workers: 1, BufferSize: 4}, logger.New("development"), m)
	d.Dispatch(newTestNotification(KindLeadTransitioned))
	d.Close()

	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected exactly one attempt, got %d", got)
	}
	if got := testutil.ToFloat64(m.NotificationsFailed.WithLabelValues(string(KindLeadTransitioned))); got != 1 {
		t.Fatalf("expected failure counter of 1, got %v", got)
	}
}

func TestDispatchAfterCloseIsDropped(t *testing.T) {
	d := New(SinkFunc(func(context.Context, Notification) error { return nil }), Options{}, nil, nil)
	d.Close()
	d.Close()

	if d.Dispatch(newTestNotification(KindLeadAssigned)) {
		t.Fatal("expected dispatch after Close to be dropped")
	}
}

func TestMultiSinkTriesEverySinkOnce(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	record := func(name string, err error) Sink {
		return SinkFunc(func(context.Context, Notification) error {
			mu.Lock()
			calls[name]++
			mu.Unlock()
			return err
		})
	}

	failure := errors.New("broker down")
	multi := MultiSink{record("inapp", nil), record("amqp", failure), record("email", nil)}

	err := multi.Send(context.Background(), newTestNotification(KindLeadAssigned))
	if !errors.Is(err, failure) {
		t.Fatalf("expected joined error to include sink failure, got %v", err)
	}
	for _, name := range []string{"inapp", "amqp", "email"} {
		if calls[name] != 1 {
			t.Fatalf("expected %s to be called once, got %d", name, calls[name])
		}
	}
}

func TestNotificationStringReadsPayload(t *testing.T) {
	n := Notification{Payload: map[string]any{PayloadCompanyName: "Acme", "count": 3}}
	if n.String(PayloadCompanyName) != "Acme" {
		t.Fatalf("unexpected company name %q", n.String(PayloadCompanyName))
	}
	if n.String("count") != "3" {
		t.Fatalf("expected non-string values to be formatted, got %q", n.String("count"))
	}
	if n.String("missing") != "" {
		t.Fatal("expected missing key to return empty string")
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingNotifier) Dispatch(n Notification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return true
}

func TestFanOutDeduplicatesAndExcludesActor(t *testing.T) {
	actor := uuid.New()
	a := uuid.New()
	b := uuid.New()
	rec := &recordingNotifier{}

	n := FanOut(rec, newTestNotification(KindLeadTransitioned), []uuid.UUID{a, actor, b, a, uuid.Nil}, actor)
	if n != 2 || len(rec.sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(rec.sent))
	}
	if rec.sent[0].RecipientID != a || rec.sent[1].RecipientID != b {
		t.Fatal("expected recipients in first-seen order")
	}
}
