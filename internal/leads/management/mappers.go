package management

import (
	"lead_pipeline_backend/internal/access"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/transport"
	"lead_pipeline_backend/platform/sanitize"
)

const reminderDateLayout = "2006-01-02"

// ToLeadResponse maps a lead to its API representation.
func ToLeadResponse(lead domain.Lead) transport.LeadResponse {
	next := domain.NextStatuses(lead.Status)
	nextStatuses := make([]string, len(next))
	for i, s := range next {
		nextStatuses[i] = string(s)
	}

	resp := transport.LeadResponse{
		ID:           lead.ID,
		CompanyName:  lead.CompanyName,
		ContactName:  lead.ContactName,
		ContactEmail: lead.ContactEmail,
		Status:       string(lead.Status),
		NextStatuses: nextStatuses,
		AssignedToID: lead.AssignedToID,
		Score:        lead.Score,
		Tier:         string(lead.Tier()),
		Metadata:     toMetadataResponse(lead.Metadata),
		Version:      lead.Version,
		CreatedAt:    lead.CreatedAt,
		UpdatedAt:    lead.UpdatedAt,
	}
	if lead.LastReminderDate != nil {
		day := lead.LastReminderDate.Format(reminderDateLayout)
		resp.LastReminderDate = &day
	}
	return resp
}

func toMetadataResponse(meta domain.Metadata) transport.MetadataResponse {
	return transport.MetadataResponse{
		Origin:         meta.Origin,
		ReviewFlags:    meta.ReviewFlags,
		EstimatedValue: meta.EstimatedValue,
		SLADeadline:    meta.SLADeadline,
		Tags:           meta.Tags,
	}
}

// toMetadata converts request metadata, stripping markup from free text.
func toMetadata(req *transport.MetadataRequest) domain.Metadata {
	if req == nil {
		return domain.Metadata{}
	}
	meta := domain.Metadata{
		Origin:         sanitize.Line(req.Origin),
		EstimatedValue: req.EstimatedValue,
		SLADeadline:    req.SLADeadline,
	}
	for _, flag := range req.ReviewFlags {
		if clean := sanitize.Line(flag); clean != "" {
			meta.ReviewFlags = append(meta.ReviewFlags, clean)
		}
	}
	if len(req.Tags) > 0 {
		meta.Tags = make(map[string]string, len(req.Tags))
		for k, v := range req.Tags {
			meta.Tags[sanitize.Line(k)] = sanitize.Text(v)
		}
	}
	return meta
}

func toAuditResponse(entry domain.AuditEntry) transport.AuditEntryResponse {
	return transport.AuditEntryResponse{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		FromStatus: string(entry.FromStatus),
		ToStatus:   string(entry.ToStatus),
		Payload:    entry.Payload,
		CreatedAt:  entry.CreatedAt,
	}
}

func toContactResponse(c domain.Contact) transport.ContactResponse {
	return transport.ContactResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		IsPrimary: c.IsPrimary,
		CreatedAt: c.CreatedAt,
	}
}

func toManagerResponse(m domain.Manager) transport.ManagerResponse {
	tier, _ := access.ManagerTier(m.Role)
	return transport.ManagerResponse{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Role:      string(m.Role),
		Tier:      string(tier),
		OpenLeads: m.OpenLeads,
	}
}
