package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Contact is a person attached to exactly one lead.
type Contact struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	IsPrimary bool
	CreatedAt time.Time
}

// OldestContact returns the earliest-created contact, breaking ties by ID.
func OldestContact(contacts []Contact) (Contact, bool) {
	if len(contacts) == 0 {
		return Contact{}, false
	}
	sorted := make([]Contact, len(contacts))
	copy(sorted, contacts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	return sorted[0], true
}

// PrimaryAfterRemoval returns the contact that must become primary when
// removed leaves the lead. ok is false when no promotion is needed.
func PrimaryAfterRemoval(removed Contact, remaining []Contact) (Contact, bool) {
	if !removed.IsPrimary {
		return Contact{}, false
	}
	for _, c := range remaining {
		if c.IsPrimary {
			return Contact{}, false
		}
	}
	return OldestContact(remaining)
}

// CountPrimary returns how many contacts are flagged primary.
func CountPrimary(contacts []Contact) int {
	n := 0
	for _, c := range contacts {
		if c.IsPrimary {
			n++
		}
	}
	return n
}
