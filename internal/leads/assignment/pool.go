package assignment

import (
	"context"

	"lead_pipeline_backend/internal/access"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/platform/apperr"

	"github.com/google/uuid"
)

// defaultRouteBatch is how many pool leads a routing pass assigns before
// fetching the next batch.
const defaultRouteBatch = 100

// RouteSummary counts the outcome of a pool routing pass.
type RouteSummary struct {
	Scanned  int `json:"scanned"`
	Assigned int `json:"assigned"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// RoutePool balances every unassigned lead of tier in the actor's
// organization. An empty tier routes all tiers.
func (s *Service) RoutePool(ctx context.Context, actor domain.Actor, tier domain.Tier) (RouteSummary, error) {
	if !access.Resolve(actor.Role).CanAssign {
		return RouteSummary{}, apperr.Forbidden("role may not assign leads").WithOp(opRoutePool)
	}
	orgID := actor.OrganizationID
	return s.route(ctx, &orgID, tier, func(domain.Lead) domain.Actor { return actor })
}

// RouteAllPools balances unassigned leads across every organization on behalf
// of the system actor.
func (s *Service) RouteAllPools(ctx context.Context, tier domain.Tier) (RouteSummary, error) {
	return s.route(ctx, nil, tier, func(lead domain.Lead) domain.Actor { return SystemActor(lead.OrganizationID) })
}

func (s *Service) route(ctx context.Context, orgID *uuid.UUID, tier domain.Tier, actorFor func(domain.Lead) domain.Actor) (RouteSummary, error) {
	var (
		summary RouteSummary
		after   *repository.PoolCursor
	)

	for {
		batch, err := s.repo.FindUnassigned(ctx, repository.UnassignedParams{
			OrganizationID: orgID,
			Tier:           tier,
			After:          after,
			Limit:          s.routeBatch,
		})
		if err != nil {
			return summary, err
		}

		for _, lead := range batch {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			summary.Scanned++
			s.routeOne(ctx, lead, actorFor(lead), &summary)
		}

		if len(batch) < s.routeBatch {
			break
		}
		// Skipped leads stay in the pool; resume behind them.
		after = repository.CursorAfter(batch[len(batch)-1])
	}

	if s.log != nil {
		s.log.Info("pool_routed",
			"tier", string(tier),
			"scanned", summary.Scanned,
			"assigned", summary.Assigned,
			"skipped", summary.Skipped,
			"failed", summary.Failed,
		)
	}
	return summary, nil
}

func (s *Service) routeOne(ctx context.Context, lead domain.Lead, actor domain.Actor, summary *RouteSummary) {
	_, err := s.Assign(ctx, lead.ID, actor, nil)
	switch {
	case err == nil:
		summary.Assigned++
	case apperr.Is(err, apperr.KindNoEligibleManager), apperr.Is(err, apperr.KindStaleState):
		summary.Skipped++
	default:
		summary.Failed++
		if s.log != nil {
			s.log.Warn("pool routing failed for lead", "lead_id", lead.ID.String(), "error", err)
		}
	}
}
