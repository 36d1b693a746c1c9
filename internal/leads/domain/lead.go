package domain

import (
	"time"

	"github.com/google/uuid"
)

// Lead is a prospective client tracked through the conversion pipeline.
// Status and AssignedToID change only through the pipeline and assignment
// services.
type Lead struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	CompanyName      string
	ContactName      string
	ContactEmail     string
	Status           Status
	AssignedToID     *uuid.UUID
	Score            int
	Metadata         Metadata
	Version          int64
	LastReminderDate *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsAssignedTo reports whether the lead is owned by userID.
func (l Lead) IsAssignedTo(userID uuid.UUID) bool {
	return l.AssignedToID != nil && *l.AssignedToID == userID
}

// Clone returns a copy of the lead that shares no pointers, slices or maps
// with l.
func (l Lead) Clone() Lead {
	out := l
	if l.AssignedToID != nil {
		id := *l.AssignedToID
		out.AssignedToID = &id
	}
	if l.LastReminderDate != nil {
		day := *l.LastReminderDate
		out.LastReminderDate = &day
	}
	out.Metadata = l.Metadata.Clone()
	return out
}

// Metadata is the free-form part of a lead that administrators may edit
// without passing through the state machine.
type Metadata struct {
	Origin         string            `json:"origin,omitempty"`
	ReviewFlags    []string          `json:"reviewFlags,omitempty"`
	EstimatedValue *float64          `json:"estimatedValue,omitempty"`
	SLADeadline    *time.Time        `json:"slaDeadline,omitempty"`
	Tags           map[string]string `json:"tags,omitempty"`
}

// Clone returns a deep copy of m.
func (m Metadata) Clone() Metadata {
	out := m
	if m.ReviewFlags != nil {
		out.ReviewFlags = append([]string(nil), m.ReviewFlags...)
	}
	if m.EstimatedValue != nil {
		v := *m.EstimatedValue
		out.EstimatedValue = &v
	}
	if m.SLADeadline != nil {
		d := *m.SLADeadline
		out.SLADeadline = &d
	}
	if m.Tags != nil {
		out.Tags = make(map[string]string, len(m.Tags))
		for k, v := range m.Tags {
			out.Tags[k] = v
		}
	}
	return out
}

// SLADueWithin reports whether the SLA deadline falls at or before now+window.
// Deadlines that already passed count as due.
func (m Metadata) SLADueWithin(now time.Time, window time.Duration) bool {
	if m.SLADeadline == nil {
		return false
	}
	return !m.SLADeadline.After(now.Add(window))
}

// Tier is the account-manager segmentation bucket a lead is routed to.
type Tier string

const (
	TierSmall Tier = "small"
	TierMid   Tier = "mid"
	TierLarge Tier = "large"
)

// Tiers lists every tier from smallest to largest.
var Tiers = []Tier{TierSmall, TierMid, TierLarge}

// ParseTier validates a tier name.
func ParseTier(raw string) (Tier, bool) {
	for _, t := range Tiers {
		if string(t) == raw {
			return t, true
		}
	}
	return "", false
}

const (
	midValueThreshold   = 10_000
	largeValueThreshold = 100_000
	midScoreThreshold   = 40
	largeScoreThreshold = 75
)

// EstimateTier derives the value bracket of a lead. An explicit estimated
// value wins over the quality score.
func EstimateTier(score int, meta Metadata) Tier {
	if meta.EstimatedValue != nil {
		switch v := *meta.EstimatedValue; {
		case v >= largeValueThreshold:
			return TierLarge
		case v >= midValueThreshold:
			return TierMid
		default:
			return TierSmall
		}
	}

	switch {
	case score >= largeScoreThreshold:
		return TierLarge
	case score >= midScoreThreshold:
		return TierMid
	default:
		return TierSmall
	}
}

// Tier returns the value bracket of the lead.
func (l Lead) Tier() Tier {
	return EstimateTier(l.Score, l.Metadata)
}

// AuditEntry is an append-only record of a committed lead mutation.
// Assignments are recorded with FromStatus == ToStatus.
type AuditEntry struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	ActorID    uuid.UUID
	FromStatus Status
	ToStatus   Status
	Payload    map[string]any
	CreatedAt  time.Time
}

// Audit payload keys.
const (
	AuditKeyPreviousAssignee = "previousAssigneeId"
	AuditKeyAssignedTo       = "assignedToId"
	AuditKeyMethod           = "method"
)
