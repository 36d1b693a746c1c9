package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"lead_pipeline_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Memory is an in-process LeadsRepository used by tests and local tooling.
// RunInTx holds the store lock for the whole unit of work and applies staged
// writes only when fn succeeds. Leads are copied on the way in and out, so
// callers never share metadata with the stored lead.
type Memory struct {
	mu       sync.Mutex
	leads    map[uuid.UUID]domain.Lead
	contacts map[uuid.UUID][]domain.Contact
	audit    []domain.AuditEntry
	users    map[uuid.UUID]domain.Manager
	now      func() time.Time

	// FailAudit, when set, is returned by every AppendAudit call.
	FailAudit error
	// PoolPageSize overrides the page size FindUnassigned reads the pool in.
	PoolPageSize int
}

var _ LeadsRepository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		leads:    make(map[uuid.UUID]domain.Lead),
		contacts: make(map[uuid.UUID][]domain.Contact),
		users:    make(map[uuid.UUID]domain.Manager),
		now:      time.Now,
	}
}

// SetClock replaces the time source used for timestamps.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// PutLead stores lead as-is, filling in an id and version when missing.
func (m *Memory) PutLead(lead domain.Lead) domain.Lead {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Version == 0 {
		lead.Version = 1
	}
	if lead.Status == "" {
		lead.Status = domain.StatusNew
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = m.now()
	}
	if lead.UpdatedAt.IsZero() {
		lead.UpdatedAt = lead.CreatedAt
	}
	m.leads[lead.ID] = lead.Clone()
	return lead
}

// PutUser stores a user, filling in an id and creation time when missing.
func (m *Memory) PutUser(user domain.Manager) domain.Manager {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = m.now()
	}
	m.users[user.ID] = user
	return user
}

// AuditEntries returns a copy of every audit entry in append order.
func (m *Memory) AuditEntries() []domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.AuditEntry, len(m.audit))
	copy(out, m.audit)
	return out
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(id)
}

func (m *Memory) getLocked(id uuid.UUID) (domain.Lead, error) {
	lead, ok := m.leads[id]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	return lead.Clone(), nil
}

func (m *Memory) List(_ context.Context, params ListParams) ([]domain.Lead, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]domain.Lead, 0)
	for _, lead := range m.leads {
		if lead.OrganizationID != params.OrganizationID {
			continue
		}
		if params.AssignedToID != nil && !lead.IsAssignedTo(*params.AssignedToID) {
			continue
		}
		if params.Status != nil && lead.Status != *params.Status {
			continue
		}
		matched = append(matched, lead.Clone())
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + normalizeListLimit(params.Limit)
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *Memory) Create(_ context.Context, params CreateLeadParams) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	lead := domain.Lead{
		ID:             uuid.New(),
		OrganizationID: params.OrganizationID,
		CompanyName:    params.CompanyName,
		ContactName:    params.ContactName,
		ContactEmail:   params.ContactEmail,
		Status:         domain.StatusNew,
		AssignedToID:   params.AssignedToID,
		Score:          params.Score,
		Metadata:       params.Metadata,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.leads[lead.ID] = lead.Clone()

	email := params.ContactEmail
	m.contacts[lead.ID] = []domain.Contact{{
		ID:        uuid.New(),
		LeadID:    lead.ID,
		Name:      params.ContactName,
		Email:     &email,
		Phone:     params.ContactPhone,
		IsPrimary: true,
		CreatedAt: now,
	}}
	return lead, nil
}

func (m *Memory) UpdateMetadata(_ context.Context, id uuid.UUID, meta domain.Metadata) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lead, err := m.getLocked(id)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.Metadata = meta.Clone()
	lead.UpdatedAt = m.now()
	m.leads[id] = lead
	return lead.Clone(), nil
}

func (m *Memory) FindUnassigned(_ context.Context, params UnassignedParams) ([]domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pool := make([]domain.Lead, 0)
	for _, lead := range m.leads {
		if lead.AssignedToID != nil || lead.Status.IsTerminal() {
			continue
		}
		if params.OrganizationID != nil && lead.OrganizationID != *params.OrganizationID {
			continue
		}
		pool = append(pool, lead.Clone())
	}
	sort.Slice(pool, func(i, j int) bool {
		if !pool[i].CreatedAt.Equal(pool[j].CreatedAt) {
			return pool[i].CreatedAt.Before(pool[j].CreatedAt)
		}
		return pool[i].ID.String() < pool[j].ID.String()
	})

	pageSize := m.PoolPageSize
	if pageSize <= 0 {
		pageSize = defaultUnassignedScan
	}
	return scanPool(params, pageSize, func(after *PoolCursor, size int) ([]domain.Lead, error) {
		page := make([]domain.Lead, 0, size)
		for _, lead := range pool {
			if after != nil && after.Before(lead) {
				continue
			}
			page = append(page, lead)
			if len(page) == size {
				break
			}
		}
		return page, nil
	})
}

func (m *Memory) RunInTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{store: m, leads: make(map[uuid.UUID]domain.Lead)}
	if err := fn(tx); err != nil {
		return err
	}
	for id, lead := range tx.leads {
		m.leads[id] = lead
	}
	m.audit = append(m.audit, tx.audit...)
	return nil
}

type memoryTx struct {
	store *Memory
	leads map[uuid.UUID]domain.Lead
	audit []domain.AuditEntry
}

func (t *memoryTx) Get(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	if lead, ok := t.leads[id]; ok {
		return lead.Clone(), nil
	}
	return t.store.getLocked(id)
}

func (t *memoryTx) Commit(ctx context.Context, lead domain.Lead, expectedVersion int64) (domain.Lead, error) {
	current, err := t.Get(ctx, lead.ID)
	if err != nil || current.Version != expectedVersion {
		return domain.Lead{}, ErrStaleState
	}
	current.Status = lead.Status
	current.AssignedToID = nil
	if lead.AssignedToID != nil {
		owner := *lead.AssignedToID
		current.AssignedToID = &owner
	}
	current.Version++
	current.UpdatedAt = t.store.now()
	t.leads[current.ID] = current
	return current.Clone(), nil
}

func (t *memoryTx) AppendAudit(_ context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	if t.store.FailAudit != nil {
		return domain.AuditEntry{}, t.store.FailAudit
	}
	entry.ID = uuid.New()
	entry.CreatedAt = t.store.now()
	if entry.Payload == nil {
		entry.Payload = map[string]any{}
	}
	t.audit = append(t.audit, entry)
	return entry, nil
}

func (m *Memory) ListAudit(_ context.Context, leadID uuid.UUID) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.AuditEntry, 0)
	for _, entry := range m.audit {
		if entry.LeadID == leadID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (m *Memory) ListActiveUsers(_ context.Context, organizationID uuid.UUID, roles []domain.Role) ([]domain.Manager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[domain.Role]bool, len(roles))
	for _, role := range roles {
		wanted[role] = true
	}

	out := make([]domain.Manager, 0)
	for _, mgr := range m.users {
		if mgr.OrganizationID != organizationID || !mgr.Active || !wanted[mgr.Role] {
			continue
		}
		mgr.OpenLeads = m.openLeadsLocked(mgr.ID)
		out = append(out, mgr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenLeads != out[j].OpenLeads {
			return out[i].OpenLeads < out[j].OpenLeads
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (m *Memory) GetUser(_ context.Context, organizationID, userID uuid.UUID) (domain.Manager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mgr, ok := m.users[userID]
	if !ok || mgr.OrganizationID != organizationID {
		return domain.Manager{}, ErrUserNotFound
	}
	mgr.OpenLeads = m.openLeadsLocked(mgr.ID)
	return mgr, nil
}

func (m *Memory) openLeadsLocked(userID uuid.UUID) int {
	n := 0
	for _, lead := range m.leads {
		if lead.IsAssignedTo(userID) && !lead.Status.IsTerminal() {
			n++
		}
	}
	return n
}

func (m *Memory) ListReminderCandidates(_ context.Context, params ReminderCandidateParams) ([]domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := ReminderDay(params.Day)
	out := make([]domain.Lead, 0)
	for _, lead := range m.leads {
		if lead.Status.IsTerminal() {
			continue
		}
		if lead.LastReminderDate != nil && !lead.LastReminderDate.Before(day) {
			continue
		}
		idle := lead.UpdatedAt.Before(params.IdleBefore)
		slaDue := lead.Metadata.SLADeadline != nil && !lead.Metadata.SLADeadline.After(params.SLABefore)
		if idle || slaDue {
			out = append(out, lead.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (m *Memory) StampReminder(_ context.Context, leadID uuid.UUID, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lead, err := m.getLocked(leadID)
	if err != nil {
		return false, err
	}
	stamp := ReminderDay(day)
	if lead.LastReminderDate != nil && !lead.LastReminderDate.Before(stamp) {
		return false, nil
	}
	lead.LastReminderDate = &stamp
	m.leads[leadID] = lead
	return true, nil
}

func (m *Memory) ListContacts(_ context.Context, leadID uuid.UUID) ([]domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Contact, len(m.contacts[leadID]))
	copy(out, m.contacts[leadID])
	return out, nil
}

func (m *Memory) AddContact(_ context.Context, params AddContactParams) (domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.getLocked(params.LeadID); err != nil {
		return domain.Contact{}, err
	}

	existing := m.contacts[params.LeadID]
	primary := params.MakePrimary || len(existing) == 0
	if primary {
		for i := range existing {
			existing[i].IsPrimary = false
		}
	}

	contact := domain.Contact{
		ID:        uuid.New(),
		LeadID:    params.LeadID,
		Name:      params.Name,
		Email:     params.Email,
		Phone:     params.Phone,
		IsPrimary: primary,
		CreatedAt: m.now(),
	}
	m.contacts[params.LeadID] = append(existing, contact)
	return contact, nil
}

func (m *Memory) RemoveContact(_ context.Context, leadID, contactID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	contacts := m.contacts[leadID]
	idx := -1
	for i, c := range contacts {
		if c.ID == contactID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrContactNotFound
	}

	removed := contacts[idx]
	remaining := make([]domain.Contact, 0, len(contacts)-1)
	remaining = append(remaining, contacts[:idx]...)
	remaining = append(remaining, contacts[idx+1:]...)

	if next, ok := domain.PrimaryAfterRemoval(removed, remaining); ok {
		for i := range remaining {
			if remaining[i].ID == next.ID {
				remaining[i].IsPrimary = true
			}
		}
	}
	m.contacts[leadID] = remaining
	return nil
}

func (m *Memory) SetPrimaryContact(_ context.Context, leadID, contactID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	contacts := m.contacts[leadID]
	found := false
	for _, c := range contacts {
		if c.ID == contactID {
			found = true
			break
		}
	}
	if !found {
		return ErrContactNotFound
	}
	for i := range contacts {
		contacts[i].IsPrimary = contacts[i].ID == contactID
	}
	return nil
}
