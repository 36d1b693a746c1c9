// Package assignment hands leads to account managers, either directly or by
// balancing the open-lead load inside the lead's value tier.
package assignment

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

const (
	opAssign    = "leads.assignment.assign"
	opRoutePool = "leads.assignment.route_pool"
)

// Assignment methods recorded in the audit payload.
const (
	MethodManual   = "manual"
	MethodBalanced = "balanced"
)

// SystemUserID identifies the scheduler when it routes the pool.
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-00000000a551")

// SystemActor returns the actor used for unattended pool routing in an
// organization.
func SystemActor(organizationID uuid.UUID) domain.Actor {
	return domain.Actor{ID: SystemUserID, OrganizationID: organizationID, Role: domain.RoleSuperAdmin}
}

// Repository is the data access the assignment engine needs.
type Repository interface {
	repository.UnitOfWork
	repository.PoolReader
	repository.ManagerReader
	Get(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

type Service struct {
	repo       Repository
	notifier   dispatch.Notifier
	bus        events.Bus
	log        *logger.Logger
	metrics    *metrics.Metrics
	routeBatch int
}

func New(repo Repository, notifier dispatch.Notifier, bus events.Bus, log *logger.Logger, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Service{repo: repo, notifier: notifier, bus: bus, log: log, metrics: m, routeBatch: defaultRouteBatch}
}

// Assign gives the lead to targetManagerID, or to the least-loaded active
// manager of the lead's tier when no target is given.
func (s *Service) Assign(ctx context.Context, leadID uuid.UUID, actor domain.Actor, targetManagerID *uuid.UUID) (domain.Lead, error) {
	if !access.Resolve(actor.Role).CanAssign {
		return domain.Lead{}, apperr.Forbidden("role may not assign leads").WithOp(opAssign)
	}

	lead, err := s.repo.Get(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && lead.OrganizationID != actor.OrganizationID) {
		return domain.Lead{}, apperr.NotFound("lead not found").WithOp(opAssign)
	}
	if err != nil {
		return domain.Lead{}, err
	}
	if lead.Status.IsTerminal() {
		return domain.Lead{}, apperr.InvalidTransition(fmt.Sprintf("lead is in terminal status %s", lead.Status)).WithOp(opAssign)
	}

	manager, method, err := s.pickManager(ctx, lead, targetManagerID)
	if err != nil {
		return domain.Lead{}, err
	}

	var committed domain.Lead
	err = s.repo.RunInTx(ctx, func(tx repository.Tx) error {
		next := lead
		next.AssignedToID = &manager.ID
		updated, err := tx.Commit(ctx, next, lead.Version)
		if errors.Is(err, repository.ErrStaleState) {
			return apperr.StaleState("lead was modified concurrently").WithOp(opAssign)
		}
		if err != nil {
			return err
		}

		payload := map[string]any{
			domain.AuditKeyAssignedTo: manager.ID.String(),
			domain.AuditKeyMethod:     method,
		}
		if lead.AssignedToID != nil {
			payload[domain.AuditKeyPreviousAssignee] = lead.AssignedToID.String()
		} else {
			payload[domain.AuditKeyPreviousAssignee] = nil
		}
		if _, err := tx.AppendAudit(ctx, domain.AuditEntry{
			LeadID:     lead.ID,
			ActorID:    actor.ID,
			FromStatus: lead.Status,
			ToStatus:   lead.Status,
			Payload:    payload,
		}); err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to record audit entry", err).WithOp(opAssign)
		}

		committed = updated
		return nil
	})
	if err != nil {
		if apperr.Is(err, apperr.KindStaleState) {
			s.metrics.TransitionConflicts.Inc()
		}
		return domain.Lead{}, err
	}

	s.metrics.AssignmentsTotal.WithLabelValues(method).Inc()
	if s.log != nil {
		s.log.Info("lead_assigned",
			"lead_id", committed.ID.String(),
			"actor_id", actor.ID.String(),
			"assigned_to_id", manager.ID.String(),
			"method", method,
		)
	}
	s.afterCommit(ctx, lead, committed, actor, method)
	return committed, nil
}

// pickManager resolves the assignee. A manual target bypasses balancing but
// must still be an active manager of the same organization.
func (s *Service) pickManager(ctx context.Context, lead domain.Lead, targetManagerID *uuid.UUID) (domain.Manager, string, error) {
	if targetManagerID != nil {
		manager, err := s.repo.GetUser(ctx, lead.OrganizationID, *targetManagerID)
		if errors.Is(err, repository.ErrUserNotFound) {
			return domain.Manager{}, "", apperr.Validation("target manager does not exist").WithOp(opAssign)
		}
		if err != nil {
			return domain.Manager{}, "", err
		}
		if _, ok := access.ManagerTier(manager.Role); !ok || !manager.Active {
			return domain.Manager{}, "", apperr.Validation("target is not an active account manager").WithOp(opAssign)
		}
		return manager, MethodManual, nil
	}

	tier := lead.Tier()
	candidates, err := s.repo.ListActiveUsers(ctx, lead.OrganizationID, access.RolesForTier(tier))
	if err != nil {
		return domain.Manager{}, "", err
	}
	if len(candidates) == 0 {
		return domain.Manager{}, "", apperr.NoEligibleManager(fmt.Sprintf("no active %s account manager", tier)).WithOp(opAssign)
	}
	return candidates[0], MethodBalanced, nil
}

func (s *Service) afterCommit(ctx context.Context, before, after domain.Lead, actor domain.Actor, method string) {
	dispatch.FanOut(s.notifier, dispatch.Notification{
		OrganizationID: after.OrganizationID,
		Kind:           dispatch.KindLeadAssigned,
		Payload: map[string]any{
			dispatch.PayloadLeadID:      after.ID.String(),
			dispatch.PayloadCompanyName: after.CompanyName,
			dispatch.PayloadStatus:      string(after.Status),
			dispatch.PayloadMethod:      method,
			dispatch.PayloadActorID:     actor.ID.String(),
		},
	}, []uuid.UUID{*after.AssignedToID}, actor.ID)

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadAssigned{
			BaseEvent:          events.NewBaseEvent(),
			LeadID:             after.ID,
			OrganizationID:     after.OrganizationID,
			ActorID:            actor.ID,
			PreviousAssigneeID: before.AssignedToID,
			AssignedToID:       *after.AssignedToID,
			Method:             method,
		})
	}
}
