package billing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stepio-app/stepio-server/internal/pkg/entitlements"
)

const planCacheTTL = 5 * time.Minute

// redisPlanCache caches resolved plans so gate checks on hot paths do
// not hit the database. Failures fall through to the database; the
// cache is never authoritative.
type redisPlanCache struct {
	client *redis.Client
}

// NewRedisPlanCache wraps an injected redis client. A nil client
// yields a nil cache, which the reconciler treats as disabled.
func NewRedisPlanCache(client *redis.Client) PlanCache {
	if client == nil {
		return nil
	}
	return &redisPlanCache{client: client}
}

func planCacheKey(clerkID string) string {
	return "billing:plan:" + clerkID
}

func (c *redisPlanCache) Get(ctx context.Context, clerkID string) (entitlements.Plan, bool) {
	val, err := c.client.Get(ctx, planCacheKey(clerkID)).Result()
	if err != nil {
		return entitlements.Free(), false
	}
	var plan entitlements.Plan
	if err := json.Unmarshal([]byte(val), &plan); err != nil {
		return entitlements.Free(), false
	}
	return plan, true
}

func (c *redisPlanCache) Set(ctx context.Context, clerkID string, plan entitlements.Plan) {
	data, err := json.Marshal(plan)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, planCacheKey(clerkID), data, planCacheTTL).Err()
}

func (c *redisPlanCache) Invalidate(ctx context.Context, clerkID string) {
	_ = c.client.Del(ctx, planCacheKey(clerkID)).Err()
}
