package repository

import (
	"context"
	"errors"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const contactColumns = `id, lead_id, name, email, phone, is_primary, created_at`

func scanContact(row pgx.Row) (domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(&c.ID, &c.LeadID, &c.Name, &c.Email, &c.Phone, &c.IsPrimary, &c.CreatedAt)
	return c, err
}

func listContacts(ctx context.Context, q querier, leadID uuid.UUID) ([]domain.Contact, error) {
	rows, err := q.Query(ctx, `
		SELECT `+contactColumns+` FROM lead_contacts
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) ListContacts(ctx context.Context, leadID uuid.UUID) ([]domain.Contact, error) {
	return listContacts(ctx, r.pool, leadID)
}

// AddContact inserts a contact. The first contact of a lead always becomes
// primary; MakePrimary demotes the current primary in the same transaction.
func (r *Repository) AddContact(ctx context.Context, params AddContactParams) (domain.Contact, error) {
	var contact domain.Contact
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := getLead(ctx, tx, params.LeadID); err != nil {
			return err
		}

		var existing int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM lead_contacts WHERE lead_id = $1`, params.LeadID).Scan(&existing); err != nil {
			return err
		}

		primary := params.MakePrimary || existing == 0
		if primary && existing > 0 {
			if _, err := tx.Exec(ctx, `UPDATE lead_contacts SET is_primary = false WHERE lead_id = $1 AND is_primary`, params.LeadID); err != nil {
				return err
			}
		}

		created, err := scanContact(tx.QueryRow(ctx, `
			INSERT INTO lead_contacts (lead_id, name, email, phone, is_primary)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+contactColumns,
			params.LeadID, params.Name, params.Email, params.Phone, primary,
		))
		if err != nil {
			return err
		}
		contact = created
		return nil
	})
	if err != nil {
		return domain.Contact{}, err
	}
	return contact, nil
}

// RemoveContact deletes a contact and promotes the oldest remaining contact
// when the removed one was primary.
func (r *Repository) RemoveContact(ctx context.Context, leadID, contactID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		removed, err := scanContact(tx.QueryRow(ctx, `
			DELETE FROM lead_contacts WHERE id = $1 AND lead_id = $2
			RETURNING `+contactColumns, contactID, leadID))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrContactNotFound
		}
		if err != nil {
			return err
		}

		remaining, err := listContacts(ctx, tx, leadID)
		if err != nil {
			return err
		}
		next, ok := domain.PrimaryAfterRemoval(removed, remaining)
		if !ok {
			return nil
		}
		_, err = tx.Exec(ctx, `UPDATE lead_contacts SET is_primary = true WHERE id = $1`, next.ID)
		return err
	})
}

// SetPrimaryContact marks contactID primary and demotes the previous primary.
func (r *Repository) SetPrimaryContact(ctx context.Context, leadID, contactID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM lead_contacts WHERE id = $1 AND lead_id = $2)
		`, contactID, leadID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrContactNotFound
		}

		if _, err := tx.Exec(ctx, `
			UPDATE lead_contacts SET is_primary = false WHERE lead_id = $1 AND is_primary AND id <> $2
		`, leadID, contactID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE lead_contacts SET is_primary = true WHERE id = $1`, contactID)
		return err
	})
}
