package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ LeadsRepository = (*Repository)(nil)

const leadColumns = `id, organization_id, company_name, contact_name, contact_email, status,
	assigned_to_id, score, metadata, version, last_reminder_date, created_at, updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead     domain.Lead
		status   string
		metadata []byte
	)
	err := row.Scan(
		&lead.ID, &lead.OrganizationID, &lead.CompanyName, &lead.ContactName, &lead.ContactEmail, &status,
		&lead.AssignedToID, &lead.Score, &metadata, &lead.Version, &lead.LastReminderDate, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.Status = domain.Status(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &lead.Metadata); err != nil {
			return domain.Lead{}, fmt.Errorf("decode lead metadata: %w", err)
		}
	}
	return lead, nil
}

func collectLeads(rows pgx.Rows) ([]domain.Lead, error) {
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func getLead(ctx context.Context, q querier, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(q.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	return getLead(ctx, r.pool, id)
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]domain.Lead, int, error) {
	where := []string{"organization_id = $1"}
	args := []any{params.OrganizationID}
	if params.AssignedToID != nil {
		args = append(args, *params.AssignedToID)
		where = append(where, fmt.Sprintf("assigned_to_id = $%d", len(args)))
	}
	if params.Status != nil {
		args = append(args, string(*params.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, normalizeListLimit(params.Limit), offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE %s
		ORDER BY created_at DESC, id ASC
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectLeads(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Create inserts a lead in the NEW status together with its primary contact.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (domain.Lead, error) {
	metadata, err := json.Marshal(params.Metadata)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("encode lead metadata: %w", err)
	}

	var lead domain.Lead
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		created, err := scanLead(tx.QueryRow(ctx, `
			INSERT INTO leads (organization_id, company_name, contact_name, contact_email, status, assigned_to_id, score, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+leadColumns,
			params.OrganizationID, params.CompanyName, params.ContactName, params.ContactEmail,
			string(domain.StatusNew), params.AssignedToID, params.Score, metadata,
		))
		if err != nil {
			return err
		}

		email := params.ContactEmail
		if _, err := tx.Exec(ctx, `
			INSERT INTO lead_contacts (lead_id, name, email, phone, is_primary)
			VALUES ($1, $2, $3, $4, true)
		`, created.ID, params.ContactName, &email, params.ContactPhone); err != nil {
			return err
		}

		lead = created
		return nil
	})
	if err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// UpdateMetadata replaces the administrative metadata of a lead. Status,
// assignment and version are left untouched.
func (r *Repository) UpdateMetadata(ctx context.Context, id uuid.UUID, meta domain.Metadata) (domain.Lead, error) {
	metadata, err := json.Marshal(meta)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("encode lead metadata: %w", err)
	}

	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET metadata = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, id, metadata))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// FindUnassigned returns pool leads that are not terminal and fall into the
// requested tier, oldest first. The tier is derived from the metadata
// document, so the pool is read in keyset pages and filtered here until
// Limit matches are found or the pool is exhausted.
func (r *Repository) FindUnassigned(ctx context.Context, params UnassignedParams) ([]domain.Lead, error) {
	return scanPool(params, defaultUnassignedScan, func(after *PoolCursor, size int) ([]domain.Lead, error) {
		return r.unassignedPage(ctx, params.OrganizationID, after, size)
	})
}

func (r *Repository) unassignedPage(ctx context.Context, orgID *uuid.UUID, after *PoolCursor, size int) ([]domain.Lead, error) {
	args := []any{statusStrings(domain.NonTerminalStatuses())}
	query := `SELECT ` + leadColumns + ` FROM leads WHERE assigned_to_id IS NULL AND status = ANY($1)`
	if orgID != nil {
		args = append(args, *orgID)
		query += fmt.Sprintf(" AND organization_id = $%d", len(args))
	}
	if after != nil {
		args = append(args, after.CreatedAt, after.ID)
		query += fmt.Sprintf(" AND (created_at, id) > ($%d, $%d)", len(args)-1, len(args))
	}
	args = append(args, size)
	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// scanPool pages through the pool with fetch, keeping leads of the requested
// tier, until params.Limit matches are collected or a short page ends the pool.
func scanPool(params UnassignedParams, pageSize int, fetch func(after *PoolCursor, size int) ([]domain.Lead, error)) ([]domain.Lead, error) {
	out := make([]domain.Lead, 0)
	after := params.After
	for {
		page, err := fetch(after, pageSize)
		if err != nil {
			return nil, err
		}
		for _, lead := range page {
			if params.Tier != "" && lead.Tier() != params.Tier {
				continue
			}
			out = append(out, lead)
			if params.Limit > 0 && len(out) == params.Limit {
				return out, nil
			}
		}
		if len(page) < pageSize {
			return out, nil
		}
		after = CursorAfter(page[len(page)-1])
	}
}

func statusStrings(statuses []domain.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// RunInTx executes fn within a database transaction.
func (r *Repository) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Get(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	return getLead(ctx, t.tx, id)
}

func (t *pgTx) Commit(ctx context.Context, lead domain.Lead, expectedVersion int64) (domain.Lead, error) {
	updated, err := scanLead(t.tx.QueryRow(ctx, `
		UPDATE leads
		SET status = $3, assigned_to_id = $4, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING `+leadColumns,
		lead.ID, expectedVersion, string(lead.Status), lead.AssignedToID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrStaleState
	}
	return updated, err
}

func (t *pgTx) AppendAudit(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	return appendAudit(ctx, t.tx, entry)
}
