package management

import (
	"context"
	"errors"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/leads/transport"
	"lead_pipeline_backend/platform/apperr"
	"lead_pipeline_backend/platform/phone"
	"lead_pipeline_backend/platform/sanitize"

	"github.com/google/uuid"
)

const msgContactNotFound = "contact not found"

// ListContacts returns the contacts of a lead, oldest first.
func (s *Service) ListContacts(ctx context.Context, actor domain.Actor, leadID uuid.UUID) ([]transport.ContactResponse, error) {
	if _, err := s.visibleLead(ctx, actor, leadID); err != nil {
		return nil, err
	}

	contacts, err := s.repo.ListContacts(ctx, leadID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.ContactResponse, len(contacts))
	for i, c := range contacts {
		out[i] = toContactResponse(c)
	}
	return out, nil
}

// AddContact attaches a contact. The first contact of a lead becomes primary.
func (s *Service) AddContact(ctx context.Context, actor domain.Actor, leadID uuid.UUID, req transport.AddContactRequest) (transport.ContactResponse, error) {
	if _, err := s.mutableLead(ctx, actor, leadID); err != nil {
		return transport.ContactResponse{}, err
	}

	params := repository.AddContactParams{
		LeadID:      leadID,
		Name:        sanitize.Line(req.Name),
		Email:       req.Email,
		MakePrimary: req.Primary,
	}
	if params.Name == "" {
		return transport.ContactResponse{}, apperr.Validation("contact name must contain text")
	}
	if req.Phone != nil {
		normalized := phone.NormalizeE164(*req.Phone)
		params.Phone = &normalized
	}

	contact, err := s.repo.AddContact(ctx, params)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.ContactResponse{}, apperr.NotFound(msgLeadNotFound)
	}
	if err != nil {
		return transport.ContactResponse{}, err
	}
	return toContactResponse(contact), nil
}

// RemoveContact deletes a contact; removing the primary promotes the oldest
// remaining contact.
func (s *Service) RemoveContact(ctx context.Context, actor domain.Actor, leadID, contactID uuid.UUID) error {
	if _, err := s.mutableLead(ctx, actor, leadID); err != nil {
		return err
	}
	err := s.repo.RemoveContact(ctx, leadID, contactID)
	if errors.Is(err, repository.ErrContactNotFound) {
		return apperr.NotFound(msgContactNotFound)
	}
	return err
}

// SetPrimaryContact marks a contact primary and demotes the previous one.
func (s *Service) SetPrimaryContact(ctx context.Context, actor domain.Actor, leadID, contactID uuid.UUID) error {
	if _, err := s.mutableLead(ctx, actor, leadID); err != nil {
		return err
	}
	err := s.repo.SetPrimaryContact(ctx, leadID, contactID)
	if errors.Is(err, repository.ErrContactNotFound) {
		return apperr.NotFound(msgContactNotFound)
	}
	return err
}

// mutableLead is visibleLead for writes: closed leads keep their contacts.
func (s *Service) mutableLead(ctx context.Context, actor domain.Actor, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := s.visibleLead(ctx, actor, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if lead.Status.IsTerminal() {
		return domain.Lead{}, apperr.InvalidTransition("lead is closed")
	}
	return lead, nil
}
