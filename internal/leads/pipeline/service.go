// Package pipeline moves leads along the conversion pipeline. Every
// transition is checked against the edge table and the permission resolver,
// committed with a compare-and-swap on the lead version and audited in the
// same unit of work.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"lead_pipeline_backend/internal/access"
	"lead_pipeline_backend/internal/events"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/notification/dispatch"
	"lead_pipeline_backend/platform/apperr"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/metrics"

	"github.com/google/uuid"
)

const opTransition = "leads.pipeline.transition"

// Repository is the data access the pipeline needs.
type Repository interface {
	repository.UnitOfWork
	ListActiveUsers(ctx context.Context, organizationID uuid.UUID, roles []domain.Role) ([]domain.Manager, error)
}

type Service struct {
	repo     Repository
	notifier dispatch.Notifier
	bus      events.Bus
	log      *logger.Logger
	metrics  *metrics.Metrics
}

func New(repo Repository, notifier dispatch.Notifier, bus events.Bus, log *logger.Logger, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Service{repo: repo, notifier: notifier, bus: bus, log: log, metrics: m}
}

// Transition moves a lead to target on behalf of actor. expectedCurrent is
// the status the caller last observed; a mismatch with the persisted status
// fails with StaleState and leaves the lead untouched.
func (s *Service) Transition(ctx context.Context, leadID uuid.UUID, target string, actor domain.Actor, expectedCurrent domain.Status) (domain.Lead, error) {
	to, ok := domain.ParseStatus(target)
	if !ok {
		return domain.Lead{}, apperr.Validation(fmt.Sprintf("unknown target status %q", target)).WithOp(opTransition)
	}

	var (
		before domain.Lead
		after  domain.Lead
	)
	err := s.repo.RunInTx(ctx, func(tx repository.Tx) error {
		lead, err := tx.Get(ctx, leadID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && lead.OrganizationID != actor.OrganizationID) {
			return apperr.NotFound("lead not found").WithOp(opTransition)
		}
		if err != nil {
			return err
		}

		if lead.Status.IsTerminal() {
			return apperr.InvalidTransition(fmt.Sprintf("lead is in terminal status %s", lead.Status)).WithOp(opTransition)
		}
		// A losing concurrent writer reads the winner's status here.
		if lead.Status != expectedCurrent {
			return apperr.StaleState(fmt.Sprintf("lead is %s, not %s", lead.Status, expectedCurrent)).
				WithOp(opTransition).
				WithDetails(map[string]string{"currentStatus": string(lead.Status)})
		}
		if err := checkTransition(lead, to, actor); err != nil {
			return err
		}

		next := lead
		next.Status = to
		committed, err := tx.Commit(ctx, next, lead.Version)
		if errors.Is(err, repository.ErrStaleState) {
			return apperr.StaleState("lead was modified concurrently").WithOp(opTransition)
		}
		if err != nil {
			return err
		}

		if _, err := tx.AppendAudit(ctx, domain.AuditEntry{
			LeadID:     lead.ID,
			ActorID:    actor.ID,
			FromStatus: lead.Status,
			ToStatus:   to,
			Payload:    map[string]any{"role": string(actor.Role)},
		}); err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to record audit entry", err).WithOp(opTransition)
		}

		before, after = lead, committed
		return nil
	})
	if err != nil {
		if apperr.Is(err, apperr.KindStaleState) {
			s.metrics.TransitionConflicts.Inc()
		}
		return domain.Lead{}, err
	}

	s.metrics.TransitionsTotal.WithLabelValues(string(before.Status), string(after.Status)).Inc()
	if s.log != nil {
		s.log.LeadTransitioned(after.ID.String(), actor.ID.String(), string(before.Status), string(after.Status))
	}
	s.afterCommit(ctx, before, after, actor)
	return after, nil
}

// checkTransition validates the edge and the actor's right to traverse it.
func checkTransition(lead domain.Lead, to domain.Status, actor domain.Actor) error {
	edge := domain.Edge{From: lead.Status, To: to}
	if !domain.IsEdge(edge) {
		return apperr.InvalidTransition(fmt.Sprintf("no pipeline edge %s", edge)).WithOp(opTransition)
	}
	if !access.CanTraverse(actor.Role, edge) {
		return apperr.InvalidTransition(fmt.Sprintf("role %s may not move a lead %s", actor.Role, edge)).WithOp(opTransition)
	}
	if access.RequiresOwnership(actor.Role) && !lead.IsAssignedTo(actor.ID) {
		return apperr.InvalidTransition("lead is not assigned to the actor").WithOp(opTransition)
	}
	return nil
}

// afterCommit notifies the assignee and the reviewers of the new stage and
// publishes the domain event. Failures here never undo the transition.
func (s *Service) afterCommit(ctx context.Context, before, after domain.Lead, actor domain.Actor) {
	recipients := make([]uuid.UUID, 0, 4)
	if before.AssignedToID != nil {
		recipients = append(recipients, *before.AssignedToID)
	}
	if roles := access.ReviewerRoles(after.Status); len(roles) > 0 {
		reviewers, err := s.repo.ListActiveUsers(ctx, after.OrganizationID, roles)
		if err != nil && s.log != nil {
			s.log.Warn("failed to resolve stage reviewers", "leadId", after.ID, "status", after.Status, "error", err)
		}
		for _, r := range reviewers {
			recipients = append(recipients, r.ID)
		}
	}

	dispatch.FanOut(s.notifier, dispatch.Notification{
		OrganizationID: after.OrganizationID,
		Kind:           dispatch.KindLeadTransitioned,
		Payload: map[string]any{
			dispatch.PayloadLeadID:      after.ID.String(),
			dispatch.PayloadCompanyName: after.CompanyName,
			dispatch.PayloadFromStatus:  string(before.Status),
			dispatch.PayloadToStatus:    string(after.Status),
			dispatch.PayloadActorID:     actor.ID.String(),
		},
	}, recipients, actor.ID)

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadTransitioned{
			BaseEvent:      events.NewBaseEvent(),
			LeadID:         after.ID,
			OrganizationID: after.OrganizationID,
			ActorID:        actor.ID,
			FromStatus:     string(before.Status),
			ToStatus:       string(after.Status),
			AssignedToID:   after.AssignedToID,
		})
	}
}
