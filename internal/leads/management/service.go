// Package management handles the lead operations that sit outside the
// pipeline state machine: creation, reads, administrative metadata edits,
// contacts and the team view.
package management

import (
	"context"
	"errors"
	"strings"

	"lead_pipeline_backend/internal/access"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/leads/transport"
	"lead_pipeline_backend/platform/apperr"
	"lead_pipeline_backend/platform/phone"
	"lead_pipeline_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	msgLeadNotFound = "lead not found"
)

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.AuditReader
	repository.ContactStore
	repository.ManagerReader
}

// Service handles lead management operations.
type Service struct {
	repo Repository
}

// New creates a new lead management service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create adds a lead in status NEW. Account managers own the leads they
// create; everyone else creates into the unassigned pool.
func (s *Service) Create(ctx context.Context, actor domain.Actor, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	if actor.Role == domain.RoleMember || !knownRole(actor.Role) {
		return transport.LeadResponse{}, apperr.Forbidden("role may not create leads")
	}

	params := repository.CreateLeadParams{
		OrganizationID: actor.OrganizationID,
		CompanyName:    sanitize.Line(req.CompanyName),
		ContactName:    sanitize.Line(req.ContactName),
		ContactEmail:   strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		Score:          req.Score,
		Metadata:       toMetadata(req.Metadata),
	}
	if params.CompanyName == "" || params.ContactName == "" {
		return transport.LeadResponse{}, apperr.Validation("company and contact name must contain text")
	}
	if req.ContactPhone != "" {
		normalized := phone.NormalizeE164(req.ContactPhone)
		params.ContactPhone = &normalized
	}
	if _, ok := access.ManagerTier(actor.Role); ok {
		owner := actor.ID
		params.AssignedToID = &owner
	}

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// GetByID retrieves a lead visible to the actor.
func (s *Service) GetByID(ctx context.Context, actor domain.Actor, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.visibleLead(ctx, actor, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// List retrieves a paginated list of the leads the actor may see.
func (s *Service) List(ctx context.Context, actor domain.Actor, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	params := repository.ListParams{
		OrganizationID: actor.OrganizationID,
		Limit:          req.PageSize,
		Offset:         (req.Page - 1) * req.PageSize,
	}
	if req.Status != "" {
		status, ok := domain.ParseStatus(req.Status)
		if !ok {
			return transport.LeadListResponse{}, apperr.Validation("unknown status filter")
		}
		params.Status = &status
	}
	if !access.Resolve(actor.Role).ViewAllLeads {
		own := actor.ID
		params.AssignedToID = &own
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = ToLeadResponse(lead)
	}

	totalPages := (total + req.PageSize - 1) / req.PageSize
	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}, nil
}

// UpdateMetadata replaces the free-form metadata of a lead. It never touches
// status or ownership and is allowed on terminal leads.
func (s *Service) UpdateMetadata(ctx context.Context, actor domain.Actor, id uuid.UUID, req transport.UpdateMetadataRequest) (transport.LeadResponse, error) {
	if !access.Resolve(actor.Role).CanApprove {
		return transport.LeadResponse{}, apperr.Forbidden("role may not edit lead metadata")
	}
	if _, err := s.visibleLead(ctx, actor, id); err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.repo.UpdateMetadata(ctx, id, toMetadata(&req.Metadata))
	if errors.Is(err, repository.ErrNotFound) {
		return transport.LeadResponse{}, apperr.NotFound(msgLeadNotFound)
	}
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// ListAudit returns the audit trail of a lead, oldest first.
func (s *Service) ListAudit(ctx context.Context, actor domain.Actor, id uuid.UUID) ([]transport.AuditEntryResponse, error) {
	if _, err := s.visibleLead(ctx, actor, id); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListAudit(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]transport.AuditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = toAuditResponse(e)
	}
	return out, nil
}

// ListManagers returns the active account managers with their open-lead
// load, optionally limited to one tier.
func (s *Service) ListManagers(ctx context.Context, actor domain.Actor, req transport.ListManagersRequest) ([]transport.ManagerResponse, error) {
	if !access.Resolve(actor.Role).CanViewTeam {
		return nil, apperr.Forbidden("role may not view the team")
	}

	roles := access.ManagerRoles()
	if req.Tier != "" {
		tier, ok := domain.ParseTier(req.Tier)
		if !ok {
			return nil, apperr.Validation("unknown tier")
		}
		roles = access.RolesForTier(tier)
	}

	managers, err := s.repo.ListActiveUsers(ctx, actor.OrganizationID, roles)
	if err != nil {
		return nil, err
	}
	out := make([]transport.ManagerResponse, len(managers))
	for i, m := range managers {
		out[i] = toManagerResponse(m)
	}
	return out, nil
}

// visibleLead loads a lead and hides it when the actor may not see it.
func (s *Service) visibleLead(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound(msgLeadNotFound)
	}
	if err != nil {
		return domain.Lead{}, err
	}
	if !access.CanSeeLead(actor, lead) {
		return domain.Lead{}, apperr.NotFound(msgLeadNotFound)
	}
	return lead, nil
}

func knownRole(role domain.Role) bool {
	_, ok := access.ParseRole(string(role))
	return ok
}
