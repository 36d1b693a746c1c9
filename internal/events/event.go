// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"lead_pipeline_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Pipeline Events
// =============================================================================

// LeadTransitioned is published after a status change has been committed.
type LeadTransitioned struct {
	BaseEvent
	LeadID         uuid.UUID  `json:"leadId"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	ActorID        uuid.UUID  `json:"actorId"`
	FromStatus     string     `json:"fromStatus"`
	ToStatus       string     `json:"toStatus"`
	AssignedToID   *uuid.UUID `json:"assignedToId,omitempty"`
}

func (e LeadTransitioned) EventName() string { return "leads.lead.transitioned" }

// LeadAssigned is published after a lead's owner has been committed.
type LeadAssigned struct {
	BaseEvent
	LeadID             uuid.UUID  `json:"leadId"`
	OrganizationID     uuid.UUID  `json:"organizationId"`
	ActorID            uuid.UUID  `json:"actorId"`
	PreviousAssigneeID *uuid.UUID `json:"previousAssigneeId,omitempty"`
	AssignedToID       uuid.UUID  `json:"assignedToId"`
	Method             string     `json:"method"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// ReminderDue is published once per lead and day by the reminder sweep.
type ReminderDue struct {
	BaseEvent
	LeadID         uuid.UUID   `json:"leadId"`
	OrganizationID uuid.UUID   `json:"organizationId"`
	Status         string      `json:"status"`
	Reason         string      `json:"reason"`
	RecipientIDs   []uuid.UUID `json:"recipientIds"`
}

func (e ReminderDue) EventName() string { return "leads.reminder.due" }
