package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"lead_pipeline_backend/internal/leads/domain"

	"github.com/google/uuid"
)

func TestMemoryCommitRejectsStaleVersion(t *testing.T) {
	store := NewMemory()
	lead := store.PutLead(domain.Lead{OrganizationID: uuid.New()})

	err := store.RunInTx(context.Background(), func(tx Tx) error {
		next := lead
		next.Status = domain.StatusContacted
		_, err := tx.Commit(context.Background(), next, lead.Version+1)
		return err
	})
	if !errors.Is(err, ErrStaleState) {
		t.Fatalf("expected ErrStaleState, got %v", err)
	}

	stored, _ := store.Get(context.Background(), lead.ID)
	if stored.Status != domain.StatusNew || stored.Version != lead.Version {
		t.Fatalf("expected lead unchanged, got %s v%d", stored.Status, stored.Version)
	}
}

func TestMemoryRunInTxRollsBackWhenAuditFails(t *testing.T) {
	store := NewMemory()
	lead := store.PutLead(domain.Lead{OrganizationID: uuid.New()})
	store.FailAudit = errors.New("audit unavailable")

	err := store.RunInTx(context.Background(), func(tx Tx) error {
		next := lead
		next.Status = domain.StatusContacted
		if _, err := tx.Commit(context.Background(), next, lead.Version); err != nil {
			return err
		}
		_, err := tx.AppendAudit(context.Background(), domain.AuditEntry{LeadID: lead.ID})
		return err
	})
	if err == nil {
		t.Fatal("expected audit failure to abort the unit of work")
	}

	stored, _ := store.Get(context.Background(), lead.ID)
	if stored.Status != domain.StatusNew {
		t.Fatalf("expected rollback to keep status NEW, got %s", stored.Status)
	}
	if len(store.AuditEntries()) != 0 {
		t.Fatal("expected no audit entries after rollback")
	}
}

func TestMemoryCommitBumpsVersion(t *testing.T) {
	store := NewMemory()
	lead := store.PutLead(domain.Lead{OrganizationID: uuid.New()})

	var committed domain.Lead
	err := store.RunInTx(context.Background(), func(tx Tx) error {
		next := lead
		next.Status = domain.StatusContacted
		var err error
		committed, err = tx.Commit(context.Background(), next, lead.Version)
		return err
	})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if committed.Version != lead.Version+1 {
		t.Fatalf("expected version %d, got %d", lead.Version+1, committed.Version)
	}
}

func TestMemoryStampReminderOncePerDay(t *testing.T) {
	store := NewMemory()
	lead := store.PutLead(domain.Lead{OrganizationID: uuid.New()})
	morning := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)

	first, err := store.StampReminder(context.Background(), lead.ID, morning)
	if err != nil || !first {
		t.Fatalf("expected first stamp to be written, got %v %v", first, err)
	}
	second, err := store.StampReminder(context.Background(), lead.ID, evening)
	if err != nil || second {
		t.Fatalf("expected second stamp on the same day to be skipped, got %v %v", second, err)
	}
	next, err := store.StampReminder(context.Background(), lead.ID, morning.Add(24*time.Hour))
	if err != nil || !next {
		t.Fatalf("expected stamp on the next day to be written, got %v %v", next, err)
	}
}

func TestMemoryReminderCandidatesSkipTerminalAndStamped(t *testing.T) {
	store := NewMemory()
	org := uuid.New()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	old := now.Add(-10 * 24 * time.Hour)
	today := ReminderDay(now)

	idle := store.PutLead(domain.Lead{OrganizationID: org, CreatedAt: old})
	store.PutLead(domain.Lead{OrganizationID: org, Status: domain.StatusWon, CreatedAt: old})
	store.PutLead(domain.Lead{OrganizationID: org, CreatedAt: old, LastReminderDate: &today})
	store.PutLead(domain.Lead{OrganizationID: org, CreatedAt: now})

	candidates, err := store.ListReminderCandidates(context.Background(), ReminderCandidateParams{
		IdleBefore: now.Add(-5 * 24 * time.Hour),
		SLABefore:  now.Add(48 * time.Hour),
		Day:        now,
	})
	if err != nil {
		t.Fatalf("ListReminderCandidates returned error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != idle.ID {
		t.Fatalf("expected only the idle open lead, got %d candidates", len(candidates))
	}
}

func TestMemoryRemovePrimaryPromotesOldest(t *testing.T) {
	store := NewMemory()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	clock := base
	store.SetClock(func() time.Time { return clock })

	lead, err := store.Create(context.Background(), CreateLeadParams{
		OrganizationID: uuid.New(),
		CompanyName:    "Acme",
		ContactName:    "Ada",
		ContactEmail:   "ada@acme.test",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	clock = base.Add(time.Hour)
	second, _ := store.AddContact(context.Background(), AddContactParams{LeadID: lead.ID, Name: "Bob"})
	clock = base.Add(2 * time.Hour)
	if _, err := store.AddContact(context.Background(), AddContactParams{LeadID: lead.ID, Name: "Cy"}); err != nil {
		t.Fatalf("AddContact returned error: %v", err)
	}

	contacts, _ := store.ListContacts(context.Background(), lead.ID)
	primary := contacts[0]
	if !primary.IsPrimary {
		t.Fatal("expected the initial contact to be primary")
	}

	if err := store.RemoveContact(context.Background(), lead.ID, primary.ID); err != nil {
		t.Fatalf("RemoveContact returned error: %v", err)
	}

	contacts, _ = store.ListContacts(context.Background(), lead.ID)
	if domain.CountPrimary(contacts) != 1 {
		t.Fatalf("expected exactly one primary, got %d", domain.CountPrimary(contacts))
	}
	for _, c := range contacts {
		if c.IsPrimary && c.ID != second.ID {
			t.Fatalf("expected oldest remaining contact %s to be promoted, got %s", second.ID, c.ID)
		}
	}
}

func TestMemorySetPrimaryDemotesPrevious(t *testing.T) {
	store := NewMemory()
	lead := store.PutLead(domain.Lead{OrganizationID: uuid.New()})

	first, _ := store.AddContact(context.Background(), AddContactParams{LeadID: lead.ID, Name: "First"})
	second, _ := store.AddContact(context.Background(), AddContactParams{LeadID: lead.ID, Name: "Second"})
	if !first.IsPrimary || second.IsPrimary {
		t.Fatal("expected only the first contact to be primary initially")
	}

	if err := store.SetPrimaryContact(context.Background(), lead.ID, second.ID); err != nil {
		t.Fatalf("SetPrimaryContact returned error: %v", err)
	}
	contacts, _ := store.ListContacts(context.Background(), lead.ID)
	for _, c := range contacts {
		if c.IsPrimary != (c.ID == second.ID) {
			t.Fatalf("unexpected primary flag on %s: %v", c.Name, c.IsPrimary)
		}
	}

	if err := store.SetPrimaryContact(context.Background(), lead.ID, uuid.New()); !errors.Is(err, ErrContactNotFound) {
		t.Fatalf("expected ErrContactNotFound, got %v", err)
	}
}

func TestMemoryListActiveUsersOrdersByLoad(t *testing.T) {
	store := NewMemory()
	org := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	busy := store.PutUser(domain.Manager{OrganizationID: org, Role: domain.RoleAccountManagerSmall, Active: true, CreatedAt: base})
	idle := store.PutUser(domain.Manager{OrganizationID: org, Role: domain.RoleAccountManagerSmall, Active: true, CreatedAt: base.Add(time.Hour)})
	store.PutUser(domain.Manager{OrganizationID: org, Role: domain.RoleAccountManagerSmall, Active: false})
	store.PutUser(domain.Manager{OrganizationID: org, Role: domain.RoleAccountManagerLarge, Active: true})

	store.PutLead(domain.Lead{OrganizationID: org, AssignedToID: &busy.ID})
	store.PutLead(domain.Lead{OrganizationID: org, AssignedToID: &idle.ID, Status: domain.StatusLost})

	managers, err := store.ListActiveUsers(context.Background(), org, []domain.Role{domain.RoleAccountManagerSmall})
	if err != nil {
		t.Fatalf("ListActiveUsers returned error: %v", err)
	}
	if len(managers) != 2 {
		t.Fatalf("expected 2 active small managers, got %d", len(managers))
	}
	if managers[0].ID != idle.ID || managers[0].OpenLeads != 0 {
		t.Fatalf("expected idle manager first with 0 open leads, got %+v", managers[0])
	}
	if managers[1].OpenLeads != 1 {
		t.Fatalf("expected busy manager to carry 1 open lead, got %d", managers[1].OpenLeads)
	}
}

func TestMemoryFindUnassignedPagesPastOtherTiers(t *testing.T) {
	store := NewMemory()
	store.PoolPageSize = 2
	org := uuid.New()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		store.PutLead(domain.Lead{OrganizationID: org, Score: 10, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	large := store.PutLead(domain.Lead{OrganizationID: org, Score: 90, CreatedAt: base.Add(time.Hour)})

	got, err := store.FindUnassigned(context.Background(), UnassignedParams{Tier: domain.TierLarge, Limit: 1})
	if err != nil {
		t.Fatalf("FindUnassigned returned error: %v", err)
	}
	if len(got) != 1 || got[0].ID != large.ID {
		t.Fatalf("expected the large lead behind three pages of small ones, got %d leads", len(got))
	}
}

func TestMemoryFindUnassignedResumesAfterCursor(t *testing.T) {
	store := NewMemory()
	store.PoolPageSize = 2
	org := uuid.New()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var leads []domain.Lead
	for i := 0; i < 5; i++ {
		leads = append(leads, store.PutLead(domain.Lead{OrganizationID: org, Score: 10, CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	first, err := store.FindUnassigned(context.Background(), UnassignedParams{Limit: 3})
	if err != nil || len(first) != 3 || first[2].ID != leads[2].ID {
		t.Fatalf("expected the three oldest leads, got %d (err %v)", len(first), err)
	}

	rest, err := store.FindUnassigned(context.Background(), UnassignedParams{After: CursorAfter(first[2])})
	if err != nil {
		t.Fatalf("FindUnassigned returned error: %v", err)
	}
	if len(rest) != 2 || rest[0].ID != leads[3].ID || rest[1].ID != leads[4].ID {
		t.Fatalf("expected the two newest leads after the cursor, got %d", len(rest))
	}
}

func TestMemoryDoesNotAliasLeadMetadata(t *testing.T) {
	store := NewMemory()
	value := 25_000.0
	owner := uuid.New()
	input := domain.Lead{
		OrganizationID: uuid.New(),
		AssignedToID:   &owner,
		Metadata: domain.Metadata{
			ReviewFlags:    []string{"duplicate"},
			EstimatedValue: &value,
			Tags:           map[string]string{"region": "north"},
		},
	}
	lead := store.PutLead(input)

	input.Metadata.ReviewFlags[0] = "changed"
	input.Metadata.Tags["region"] = "south"
	*input.Metadata.EstimatedValue = 1
	*input.AssignedToID = uuid.New()

	got, _ := store.Get(context.Background(), lead.ID)
	got.Metadata.Tags["region"] = "east"
	got.Metadata.ReviewFlags = append(got.Metadata.ReviewFlags[:0], "mutated")

	stored, _ := store.Get(context.Background(), lead.ID)
	if stored.Metadata.ReviewFlags[0] != "duplicate" || stored.Metadata.Tags["region"] != "north" {
		t.Fatalf("expected stored metadata untouched, got %+v", stored.Metadata)
	}
	if *stored.Metadata.EstimatedValue != 25_000 || !stored.IsAssignedTo(owner) {
		t.Fatalf("expected stored pointers untouched, got value %v owner %v", *stored.Metadata.EstimatedValue, stored.AssignedToID)
	}
}
