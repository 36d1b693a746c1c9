// Package leads provides the lead pipeline bounded context.
// This file defines the public API of the leads bounded context.
// Only types and interfaces defined here should be imported by other domains.
package leads

import (
	"context"
	"errors"

	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

// RecipientEmail resolves the address notifications to a user of the
// organization are delivered to.
func (m *Module) RecipientEmail(ctx context.Context, organizationID, userID uuid.UUID) (string, error) {
	user, err := m.repo.GetUser(ctx, organizationID, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", apperr.NotFound("user not found")
	}
	if err != nil {
		return "", err
	}
	return user.Email, nil
}
