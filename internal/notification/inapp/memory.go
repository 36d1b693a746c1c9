package inapp

import (
	"context"
	"sort"
	"sync"
	"time"

	"lead_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

// Memory is an in-process Store with the recipient scoping of Repository.
// It backs tests and local tooling.
type Memory struct {
	mu    sync.Mutex
	items []Notification
	now   func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Create(_ context.Context, p CreateParams) (Notification, error) {
	if p.RecipientID == uuid.Nil {
		return Notification{}, apperr.Validation(errUserIDRequired).WithOp(opCreate)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	n := Notification{
		ID:             uuid.New(),
		OrganizationID: p.OrganizationID,
		RecipientID:    p.RecipientID,
		Kind:           p.Kind,
		Payload:        p.Payload,
		CreatedAt:      m.now(),
	}
	m.items = append(m.items, n)
	return n, nil
}

// List returns the recipient's notifications newest first.
func (m *Memory) List(_ context.Context, recipientID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	if recipientID == uuid.Nil {
		return nil, 0, apperr.Validation(errUserIDRequired).WithOp(opList)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	own := make([]Notification, 0)
	for _, n := range m.items {
		if n.RecipientID == recipientID {
			own = append(own, n)
		}
	}
	sort.SliceStable(own, func(i, j int) bool { return own[i].CreatedAt.After(own[j].CreatedAt) })

	total := len(own)
	if offset >= total {
		return []Notification{}, total, nil
	}
	own = own[offset:]
	if limit > 0 && len(own) > limit {
		own = own[:limit]
	}
	return own, total, nil
}

func (m *Memory) CountUnread(_ context.Context, recipientID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.items {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// MarkRead fails with NotFound unless the notification belongs to recipientID.
func (m *Memory) MarkRead(_ context.Context, recipientID, notificationID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == notificationID && m.items[i].RecipientID == recipientID {
			m.items[i].IsRead = true
			return nil
		}
	}
	return apperr.NotFound("notification not found").WithOp(opMarkRead)
}

func (m *Memory) MarkAllRead(_ context.Context, recipientID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].RecipientID == recipientID {
			m.items[i].IsRead = true
		}
	}
	return nil
}
