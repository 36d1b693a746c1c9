package notification

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"lead_pipeline_backend/internal/email"
	"lead_pipeline_backend/internal/events"
	"lead_pipeline_backend/internal/notification/dispatch"
	"lead_pipeline_backend/internal/notification/inapp"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/metrics"

	"github.com/google/uuid"
)

type testModuleConfig struct{}

func (testModuleConfig) GetNotificationWorkers() int               { return 2 }
func (testModuleConfig) GetNotificationBufferSize() int            { return 8 }
func (testModuleConfig) GetNotificationSendTimeout() time.Duration { return time.Second }
func (testModuleConfig) IsEmailEnabled() bool                      { return false }
func (testModuleConfig) GetSMTPHost() string                       { return "" }
func (testModuleConfig) GetSMTPPort() int                          { return 0 }
func (testModuleConfig) GetSMTPUsername() string                   { return "" }
func (testModuleConfig) GetSMTPPassword() string                   { return "" }
func (testModuleConfig) GetEmailFromName() string                  { return "" }
func (testModuleConfig) GetEmailFromAddress() string               { return "" }
func (testModuleConfig) GetAppBaseURL() string                     { return "https://app.example.com" }
func (testModuleConfig) IsAMQPEnabled() bool                       { return false }
func (testModuleConfig) GetAMQPURL() string                        { return "" }
func (testModuleConfig) GetAMQPExchange() string                   { return "" }

type recordingSender struct {
	mu          sync.Mutex
	transitions []email.LeadTransitioned
	assignments []email.LeadAssigned
	reminders   []email.LeadReminder
	to          []string
}

func (s *recordingSender) SendLeadTransitionedEmail(_ context.Context, to string, data email.LeadTransitioned) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.to = append(s.to, to)
	s.transitions = append(s.transitions, data)
	return nil
}

func (s *recordingSender) SendLeadAssignedEmail(_ context.Context, to string, data email.LeadAssigned) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.to = append(s.to, to)
	s.assignments = append(s.assignments, data)
	return nil
}

func (s *recordingSender) SendLeadReminderEmail(_ context.Context, to string, data email.LeadReminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.to = append(s.to, to)
	s.reminders = append(s.reminders, data)
	return nil
}

type directoryFunc func(ctx context.Context, organizationID, userID uuid.UUID) (string, error)

func (f directoryFunc) RecipientEmail(ctx context.Context, organizationID, userID uuid.UUID) (string, error) {
	return f(ctx, organizationID, userID)
}

func staticDirectory(addr string) RecipientDirectory {
	return directoryFunc(func(context.Context, uuid.UUID, uuid.UUID) (string, error) { return addr, nil })
}

func TestEmailSinkRendersEachKind(t *testing.T) {
	sender := &recordingSender{}
	sink := &emailSink{sender: sender, directory: staticDirectory("am@example.com"), baseURL: "https://app.example.com/"}
	leadID := uuid.New()
	base := dispatch.Notification{OrganizationID: uuid.New(), RecipientID: uuid.New()}

	transition := base
	transition.Kind = dispatch.KindLeadTransitioned
	transition.Payload = map[string]any{
		dispatch.PayloadLeadID:      leadID.String(),
		dispatch.PayloadCompanyName: "Acme",
		dispatch.PayloadFromStatus:  "NEW",
		dispatch.PayloadToStatus:    "CONTACTED",
	}
	assigned := base
	assigned.Kind = dispatch.KindLeadAssigned
	assigned.Payload = map[string]any{dispatch.PayloadLeadID: leadID.String(), dispatch.PayloadMethod: "balanced"}
	reminder := base
	reminder.Kind = dispatch.KindLeadReminder
	reminder.Payload = map[string]any{dispatch.PayloadLeadID: leadID.String(), dispatch.PayloadReason: "idle"}

	for _, n := range []dispatch.Notification{transition, assigned, reminder} {
		if err := sink.Send(context.Background(), n); err != nil {
			t.Fatalf("Send(%s) returned error: %v", n.Kind, err)
		}
	}

	if len(sender.transitions) != 1 || len(sender.assignments) != 1 || len(sender.reminders) != 1 {
		t.Fatalf("expected one email per kind, got %d/%d/%d", len(sender.transitions), len(sender.assignments), len(sender.reminders))
	}
	wantURL := "https://app.example.com/leads/" + leadID.String()
	if sender.transitions[0].LeadURL != wantURL {
		t.Fatalf("expected lead url %q, got %q", wantURL, sender.transitions[0].LeadURL)
	}
	if sender.transitions[0].ToStatus != "CONTACTED" || sender.assignments[0].Method != "balanced" || sender.reminders[0].Reason != "idle" {
		t.Fatal("expected payload values to reach the templates")
	}
	for _, to := range sender.to {
		if to != "am@example.com" {
			t.Fatalf("unexpected recipient address %q", to)
		}
	}
}

func TestEmailSinkSkipsRecipientsWithoutAddress(t *testing.T) {
	sender := &recordingSender{}
	sink := &emailSink{sender: sender, directory: staticDirectory(" "), baseURL: "https://app.example.com"}

	err := sink.Send(context.Background(), dispatch.Notification{Kind: dispatch.KindLeadAssigned})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(sender.to) != 0 {
		t.Fatal("expected no email without an address")
	}
}

func TestEmailSinkReportsLookupFailure(t *testing.T) {
	lookupErr := errors.New("db down")
	sink := &emailSink{
		sender:    &recordingSender{},
		directory: directoryFunc(func(context.Context, uuid.UUID, uuid.UUID) (string, error) {
			return "", lookupErr
		}),
	}

	err := sink.Send(context.Background(), dispatch.Notification{Kind: dispatch.KindLeadAssigned})
	if !errors.Is(err, lookupErr) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestModuleDeliversToInbox(t *testing.T) {
	store := inapp.NewMemory()
	mod, err := newModule(store, testModuleConfig{}, nil, metrics.NewNop())
	if err != nil {
		t.Fatalf("newModule returned error: %v", err)
	}

	recipient := uuid.New()
	accepted := dispatch.FanOut(mod.Notifier(), dispatch.Notification{
		OrganizationID: uuid.New(),
		Kind:           dispatch.KindLeadReminder,
		Payload:        map[string]any{dispatch.PayloadReason: "idle"},
	}, []uuid.UUID{recipient, recipient}, uuid.Nil)
	if accepted != 1 {
		t.Fatalf("expected one accepted notification, got %d", accepted)
	}

	mod.Close()

	count, err := mod.InAppService().CountUnread(context.Background(), recipient)
	if err != nil {
		t.Fatalf("CountUnread returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one inbox entry, got %d", count)
	}
}

func TestModuleLogsOnlyReminderEvents(t *testing.T) {
	var buf bytes.Buffer
	log := &logger.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	mod, err := newModule(inapp.NewMemory(), testModuleConfig{}, log, metrics.NewNop())
	if err != nil {
		t.Fatalf("newModule returned error: %v", err)
	}
	defer mod.Close()

	bus := events.NewInMemoryBus(log)
	mod.RegisterHandlers(bus)

	ctx := context.Background()
	if err := bus.PublishSync(ctx, events.LeadTransitioned{BaseEvent: events.NewBaseEvent(), LeadID: uuid.New()}); err != nil {
		t.Fatalf("PublishSync returned error: %v", err)
	}
	if err := bus.PublishSync(ctx, events.LeadAssigned{BaseEvent: events.NewBaseEvent(), LeadID: uuid.New()}); err != nil {
		t.Fatalf("PublishSync returned error: %v", err)
	}
	if err := bus.PublishSync(ctx, events.ReminderDue{BaseEvent: events.NewBaseEvent(), LeadID: uuid.New(), Reason: "idle"}); err != nil {
		t.Fatalf("PublishSync returned error: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "lead_transitioned") || strings.Contains(out, "lead assigned") {
		t.Fatalf("expected transitions and assignments to be left to the services, got %s", out)
	}
	if strings.Count(out, "lead reminder due") != 1 {
		t.Fatalf("expected one reminder log line, got %s", out)
	}
}
