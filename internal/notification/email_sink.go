package notification

import (
	"context"
	"fmt"
	"strings"

	"lead_pipeline_backend/internal/email"
	"lead_pipeline_backend/internal/notification/dispatch"

	"github.com/google/uuid"
)

// RecipientDirectory resolves the email address of a notification recipient.
type RecipientDirectory interface {
	RecipientEmail(ctx context.Context, organizationID, userID uuid.UUID) (string, error)
}

// emailSink renders a notification into the matching lead email.
type emailSink struct {
	sender    email.Sender
	directory RecipientDirectory
	baseURL   string
}

var _ dispatch.Sink = (*emailSink)(nil)

func (s *emailSink) Send(ctx context.Context, n dispatch.Notification) error {
	if s.directory == nil {
		return nil
	}
	to, err := s.directory.RecipientEmail(ctx, n.OrganizationID, n.RecipientID)
	if err != nil {
		return fmt.Errorf("resolve recipient %s: %w", n.RecipientID, err)
	}
	if strings.TrimSpace(to) == "" {
		return nil
	}

	leadURL := s.leadURL(n.String(dispatch.PayloadLeadID))
	company := n.String(dispatch.PayloadCompanyName)

	switch n.Kind {
	case dispatch.KindLeadTransitioned:
		return s.sender.SendLeadTransitionedEmail(ctx, to, email.LeadTransitioned{
			LeadURL:     leadURL,
			CompanyName: company,
			FromStatus:  n.String(dispatch.PayloadFromStatus),
			ToStatus:    n.String(dispatch.PayloadToStatus),
		})
	case dispatch.KindLeadAssigned:
		return s.sender.SendLeadAssignedEmail(ctx, to, email.LeadAssigned{
			LeadURL:     leadURL,
			CompanyName: company,
			Method:      n.String(dispatch.PayloadMethod),
		})
	case dispatch.KindLeadReminder:
		return s.sender.SendLeadReminderEmail(ctx, to, email.LeadReminder{
			LeadURL:     leadURL,
			CompanyName: company,
			Status:      n.String(dispatch.PayloadStatus),
			Reason:      n.String(dispatch.PayloadReason),
		})
	default:
		return nil
	}
}

func (s *emailSink) leadURL(leadID string) string {
	base := strings.TrimRight(s.baseURL, "/")
	if leadID == "" {
		return base + "/leads"
	}
	return base + "/leads/" + leadID
}
