package repository

import (
	"context"
	"time"

	"lead_pipeline_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// ListReminderCandidates returns non-terminal leads that are idle or whose SLA
// deadline falls before params.SLABefore, skipping leads already stamped for
// params.Day.
func (r *Repository) ListReminderCandidates(ctx context.Context, params ReminderCandidateParams) ([]domain.Lead, error) {
	limit := params.Limit
	if limit < 1 {
		limit = defaultCandidateLimit
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE status = ANY($1)
			AND (last_reminder_date IS NULL OR last_reminder_date < $2::date)
			AND (
				updated_at < $3
				OR (metadata ? 'slaDeadline' AND (metadata->>'slaDeadline')::timestamptz <= $4)
			)
		ORDER BY updated_at ASC, id ASC
		LIMIT $5
	`, statusStrings(domain.NonTerminalStatuses()), ReminderDay(params.Day), params.IdleBefore, params.SLABefore, limit)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// StampReminder writes the reminder date with a conditional update so that two
// overlapping sweeps cannot both claim the same lead for the same day.
func (r *Repository) StampReminder(ctx context.Context, leadID uuid.UUID, day time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET last_reminder_date = $2::date
		WHERE id = $1 AND (last_reminder_date IS NULL OR last_reminder_date < $2::date)
	`, leadID, ReminderDay(day))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
