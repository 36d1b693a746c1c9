package inapp

import (
	"context"

	"lead_pipeline_backend/internal/notification/dispatch"
	"lead_pipeline_backend/platform/apperr"
	"lead_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

type Service struct {
	repo Store
	log  *logger.Logger
}

var _ dispatch.Sink = (*Service)(nil)

func NewService(repo Store, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// Send persists the notification in the recipient's inbox.
func (s *Service) Send(ctx context.Context, n dispatch.Notification) error {
	if s == nil || s.repo == nil {
		return apperr.Internal("in-app notification service not configured")
	}

	_, err := s.repo.Create(ctx, CreateParams{
		OrganizationID: n.OrganizationID,
		RecipientID:    n.RecipientID,
		Kind:           string(n.Kind),
		Payload:        n.Payload,
	})
	if err != nil {
		if s.log != nil {
			s.log.Error("failed to persist in-app notification", "error", err, "recipientId", n.RecipientID)
		}
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, recipientID uuid.UUID, page, pageSize int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize
	return s.repo.List(ctx, recipientID, pageSize, offset)
}

func (s *Service) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, recipientID)
}

func (s *Service) MarkRead(ctx context.Context, recipientID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, recipientID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, recipientID)
}
