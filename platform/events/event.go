// Package events provides the process-local event bus modules use to react
// to committed lead changes without importing each other.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName is the subscription key, e.g. "leads.lead.transitioned".
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the identity and time shared by all events. Embed it and
// build it with NewBaseEvent.
type BaseEvent struct {
	ID        uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a fresh event id and the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: time.Now().UTC()}
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// EventID identifies one published occurrence in handler logs.
func (e BaseEvent) EventID() uuid.UUID { return e.ID }

// identified is satisfied by events embedding BaseEvent.
type identified interface {
	EventID() uuid.UUID
}

// eventID returns the id of event, or an empty string when it has none.
func eventID(event Event) string {
	if e, ok := event.(identified); ok && e.EventID() != uuid.Nil {
		return e.EventID().String()
	}
	return ""
}

// Handler reacts to a published event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to the handlers subscribed to their name.
type Bus interface {
	// Publish runs handlers asynchronously; failures are logged, not returned.
	Publish(ctx context.Context, event Event)
	// PublishSync runs handlers in order and returns their joined errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
