package billing

import (
	"context"
	"errors"

	"github.com/stepio-app/stepio-server/app/models"
	"github.com/stepio-app/stepio-server/internal/pkg/entitlements"
)

// PlanCache is an optional read-through cache for resolved plans. The
// reconciler only invalidates; reads happen on the lookup path.
type PlanCache interface {
	Get(ctx context.Context, clerkID string) (entitlements.Plan, bool)
	Set(ctx context.Context, clerkID string, plan entitlements.Plan)
	Invalidate(ctx context.Context, clerkID string)
}

// Reconciler computes and persists the canonical plan record. Writes
// are pure overwrites keyed by user, so duplicate or replayed events
// converge on the same stored state. No ordering is enforced between
// concurrent events for the same user (last write wins); SyncedAt
// records when the entitlement was observed so staleness is visible.
type Reconciler struct {
	repo  Repository
	cache PlanCache
	clock Clock
}

// NewReconciler creates a reconciler. cache may be nil.
func NewReconciler(repo Repository, cache PlanCache, clock Clock) *Reconciler {
	if clock == nil {
		clock = SystemClock()
	}
	return &Reconciler{repo: repo, cache: cache, clock: clock}
}

// Apply merge-writes the resolved entitlement into the user's plan
// record. Tier and status are always written together. The durable
// write happens first; cache invalidation is a best-effort second
// phase that never fails the write.
func (r *Reconciler) Apply(ctx context.Context, clerkID string, res ResolvedEntitlement) error {
	if clerkID == "" {
		return errors.New("clerk_id is required")
	}

	record := &models.UserPlan{
		ClerkID:        clerkID,
		Tier:           string(entitlements.NormalizeTier(string(res.Plan.Tier))),
		Status:         string(entitlements.NormalizeStatus(string(res.Plan.Status))),
		RenewalDate:    res.Plan.RenewalDate,
		ProductID:      res.Plan.ProductID,
		SubscriptionID: res.SubscriptionID,
		SyncedAt:       r.clock.Now(),
	}
	if err := r.repo.UpsertUserPlan(record); err != nil {
		return err
	}

	if r.cache != nil {
		r.cache.Invalidate(ctx, clerkID)
	}
	return nil
}

// GetPlan returns the canonical plan for a user, defaulting to
// free/inactive when no record exists. Pro is never inferred from
// absence of data.
func (r *Reconciler) GetPlan(ctx context.Context, clerkID string) (entitlements.Plan, error) {
	if r.cache != nil {
		if plan, ok := r.cache.Get(ctx, clerkID); ok {
			return plan, nil
		}
	}

	record, err := r.repo.GetUserPlan(clerkID)
	if err != nil {
		return entitlements.Free(), err
	}
	plan := entitlements.FromModel(record)

	if r.cache != nil {
		r.cache.Set(ctx, clerkID, plan)
	}
	return plan, nil
}
