// Package dispatch delivers lead notifications to sinks through a bounded,
// non-blocking queue.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies what a notification is about.
type Kind string

const (
	KindLeadTransitioned Kind = "lead_transitioned"
	KindLeadAssigned     Kind = "lead_assigned"
	KindLeadReminder     Kind = "lead_reminder"
)

// Payload keys shared by producers and sinks.
const (
	PayloadLeadID      = "leadId"
	PayloadCompanyName = "companyName"
	PayloadFromStatus  = "fromStatus"
	PayloadToStatus    = "toStatus"
	PayloadStatus      = "status"
	PayloadMethod      = "method"
	PayloadReason      = "reason"
	PayloadActorID     = "actorId"
)

// Notification is a single message addressed to one user.
type Notification struct {
	OrganizationID uuid.UUID      `json:"organizationId"`
	RecipientID    uuid.UUID      `json:"recipientId"`
	Kind           Kind           `json:"kind"`
	Payload        map[string]any `json:"payload"`
}

// String returns the payload value for key, or "" when absent.
func (n Notification) String(key string) string {
	v, ok := n.Payload[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Sink delivers a notification. Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, n Notification) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, n Notification) error

func (f SinkFunc) Send(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// MultiSink fans a notification out to every sink once and joins the errors.
type MultiSink []Sink

func (m MultiSink) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Notifier accepts notifications without blocking the caller.
type Notifier interface {
	Dispatch(n Notification) bool
}

// FanOut dispatches a copy of n to every distinct recipient except exclude
// and returns how many copies were accepted.
func FanOut(notifier Notifier, n Notification, recipients []uuid.UUID, exclude uuid.UUID) int {
	if notifier == nil {
		return 0
	}
	seen := make(map[uuid.UUID]struct{}, len(recipients))
	accepted := 0
	for _, id := range recipients {
		if id == uuid.Nil || id == exclude {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		copyN := n
		copyN.RecipientID = id
		if notifier.Dispatch(copyN) {
			accepted++
		}
	}
	return accepted
}
