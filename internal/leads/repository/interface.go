package repository

import (
	"context"
	"errors"
	"time"

	"lead_pipeline_backend/internal/leads/domain"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("lead not found")
	ErrStaleState      = errors.New("lead was modified concurrently")
	ErrContactNotFound = errors.New("contact not found")
	ErrUserNotFound    = errors.New("user not found")
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	List(ctx context.Context, params ListParams) ([]domain.Lead, int, error)
}

// LeadWriter creates leads and edits their administrative metadata. Neither
// operation touches status or assignment.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (domain.Lead, error)
	UpdateMetadata(ctx context.Context, id uuid.UUID, meta domain.Metadata) (domain.Lead, error)
}

// Tx is the unit of work in which a lead mutation and its audit entry are
// written together.
type Tx interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	// Commit persists status and assignment when the stored version still
	// equals expectedVersion, returning ErrStaleState otherwise.
	Commit(ctx context.Context, lead domain.Lead, expectedVersion int64) (domain.Lead, error)
	AppendAudit(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error)
}

// UnitOfWork runs fn in a transaction; any error rolls back every write.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// AuditReader lists a lead's audit trail, oldest first.
type AuditReader interface {
	ListAudit(ctx context.Context, leadID uuid.UUID) ([]domain.AuditEntry, error)
}

// PoolReader finds leads waiting in the unassigned pool.
type PoolReader interface {
	FindUnassigned(ctx context.Context, params UnassignedParams) ([]domain.Lead, error)
}

// ManagerReader provides access to the users that own or review leads.
type ManagerReader interface {
	// ListActiveUsers returns active users of the organization holding one of
	// roles, each with the count of non-terminal leads assigned to them.
	ListActiveUsers(ctx context.Context, organizationID uuid.UUID, roles []domain.Role) ([]domain.Manager, error)
	GetUser(ctx context.Context, organizationID, userID uuid.UUID) (domain.Manager, error)
}

// ReminderStore selects idle leads and stamps reminder idempotency dates.
type ReminderStore interface {
	ListReminderCandidates(ctx context.Context, params ReminderCandidateParams) ([]domain.Lead, error)
	// StampReminder sets the lead's last reminder date to day unless it is
	// already day or later, reporting whether the stamp was written.
	StampReminder(ctx context.Context, leadID uuid.UUID, day time.Time) (bool, error)
}

// ContactStore manages contacts while keeping at most one primary per lead.
type ContactStore interface {
	ListContacts(ctx context.Context, leadID uuid.UUID) ([]domain.Contact, error)
	AddContact(ctx context.Context, params AddContactParams) (domain.Contact, error)
	RemoveContact(ctx context.Context, leadID, contactID uuid.UUID) error
	SetPrimaryContact(ctx context.Context, leadID, contactID uuid.UUID) error
}

// =====================================
// Composite Interface
// =====================================

// LeadsRepository is the complete persistence contract of the leads core.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	UnitOfWork
	AuditReader
	PoolReader
	ManagerReader
	ReminderStore
	ContactStore
}

// =====================================
// Parameters
// =====================================

type ListParams struct {
	OrganizationID uuid.UUID
	AssignedToID   *uuid.UUID
	Status         *domain.Status
	Limit          int
	Offset         int
}

type CreateLeadParams struct {
	OrganizationID uuid.UUID
	CompanyName    string
	ContactName    string
	ContactEmail   string
	ContactPhone   *string
	AssignedToID   *uuid.UUID
	Score          int
	Metadata       domain.Metadata
}

type UnassignedParams struct {
	// OrganizationID limits the search to one tenant; nil searches all.
	OrganizationID *uuid.UUID
	Tier           domain.Tier
	// After resumes the oldest-first scan behind a previously returned lead.
	After *PoolCursor
	// Limit caps the matches returned; zero returns every match.
	Limit int
}

// PoolCursor is a keyset position in the pool's (created_at, id) order.
type PoolCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// CursorAfter positions a pool scan behind lead.
func CursorAfter(lead domain.Lead) *PoolCursor {
	return &PoolCursor{CreatedAt: lead.CreatedAt, ID: lead.ID}
}

// Before reports whether lead sorts at or before the cursor.
func (c PoolCursor) Before(lead domain.Lead) bool {
	if !lead.CreatedAt.Equal(c.CreatedAt) {
		return lead.CreatedAt.Before(c.CreatedAt)
	}
	return lead.ID.String() <= c.ID.String()
}

type ReminderCandidateParams struct {
	IdleBefore time.Time
	SLABefore  time.Time
	Day        time.Time
	Limit      int
}

type AddContactParams struct {
	LeadID      uuid.UUID
	Name        string
	Email       *string
	Phone       *string
	MakePrimary bool
}

const (
	defaultListLimit      = 50
	maxListLimit          = 200
	defaultUnassignedScan = 500
	defaultCandidateLimit = 1000
)

// ReminderDay truncates t to the UTC calendar day used for reminder stamps.
func ReminderDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func normalizeListLimit(limit int) int {
	if limit < 1 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
