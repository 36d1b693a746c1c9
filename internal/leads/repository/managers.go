package repository

import (
	"context"
	"errors"

	"lead_pipeline_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Managers are ordered by open-lead load, then creation time, then id, so the
// first element is the balancing pick.
const managerSelect = `
	SELECT u.id, u.organization_id, u.name, u.email, u.role, u.is_active, u.created_at,
		(SELECT COUNT(*) FROM leads l WHERE l.assigned_to_id = u.id AND l.status = ANY($3)) AS open_leads
	FROM users u`

func scanManager(row pgx.Row) (domain.Manager, error) {
	var (
		m    domain.Manager
		role string
	)
	if err := row.Scan(&m.ID, &m.OrganizationID, &m.Name, &m.Email, &role, &m.Active, &m.CreatedAt, &m.OpenLeads); err != nil {
		return domain.Manager{}, err
	}
	m.Role = domain.Role(role)
	return m, nil
}

func (r *Repository) ListActiveUsers(ctx context.Context, organizationID uuid.UUID, roles []domain.Role) ([]domain.Manager, error) {
	if len(roles) == 0 {
		return []domain.Manager{}, nil
	}

	rows, err := r.pool.Query(ctx, managerSelect+`
		WHERE u.organization_id = $1 AND u.role = ANY($2) AND u.is_active
		ORDER BY open_leads ASC, u.created_at ASC, u.id ASC
	`, organizationID, roleStrings(roles), statusStrings(domain.NonTerminalStatuses()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Manager, 0)
	for rows.Next() {
		m, err := scanManager(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) GetUser(ctx context.Context, organizationID, userID uuid.UUID) (domain.Manager, error) {
	m, err := scanManager(r.pool.QueryRow(ctx, managerSelect+`
		WHERE u.organization_id = $1 AND u.id = $2
	`, organizationID, userID, statusStrings(domain.NonTerminalStatuses())))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Manager{}, ErrUserNotFound
	}
	return m, err
}

func roleStrings(roles []domain.Role) []string {
	out := make([]string, len(roles))
	for i, role := range roles {
		out[i] = string(role)
	}
	return out
}
