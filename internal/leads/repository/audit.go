package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"lead_pipeline_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type auditRowScanner interface {
	Scan(dest ...any) error
}

func appendAudit(ctx context.Context, q querier, entry domain.AuditEntry) (domain.AuditEntry, error) {
	payload, err := marshalPayload(entry.Payload)
	if err != nil {
		return domain.AuditEntry{}, err
	}

	return scanAuditEntry(q.QueryRow(ctx, `
		INSERT INTO lead_audit_entries (lead_id, actor_id, from_status, to_status, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, lead_id, actor_id, from_status, to_status, payload, created_at
	`, entry.LeadID, entry.ActorID, string(entry.FromStatus), string(entry.ToStatus), payload))
}

// ListAudit returns the lead's audit trail in commit order.
func (r *Repository) ListAudit(ctx context.Context, leadID uuid.UUID) ([]domain.AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, actor_id, from_status, to_status, payload, created_at
		FROM lead_audit_entries
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	return collectAuditEntries(rows)
}

func collectAuditEntries(rows pgx.Rows) ([]domain.AuditEntry, error) {
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

func scanAuditEntry(row auditRowScanner) (domain.AuditEntry, error) {
	var (
		entry      domain.AuditEntry
		fromStatus string
		toStatus   string
		payload    []byte
	)
	if err := row.Scan(&entry.ID, &entry.LeadID, &entry.ActorID, &fromStatus, &toStatus, &payload, &entry.CreatedAt); err != nil {
		return domain.AuditEntry{}, err
	}
	entry.FromStatus = domain.Status(fromStatus)
	entry.ToStatus = domain.Status(toStatus)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &entry.Payload); err != nil {
			return domain.AuditEntry{}, fmt.Errorf("decode audit payload: %w", err)
		}
	}
	return entry, nil
}

func marshalPayload(payload map[string]any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode audit payload: %w", err)
	}
	return data, nil
}
