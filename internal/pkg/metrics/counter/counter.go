package counter

import (
	"context"
	"strconv"

	"github.com/stepio-app/stepio-server/internal/pkg/cache"
)

const (
	webhookEventsKey     = "billing:counters:webhooks"
	entitlementSyncsKey  = "billing:counters:syncs"
	webhookRejectionsKey = "billing:counters:webhook_rejections"
)

// AddWebhookEvent increments the received-webhook counter for a provider in Redis
func AddWebhookEvent(provider string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookEventsKey, provider, 1).Err()
}

// AddWebhookRejection increments the rejected-webhook counter (bad signature or auth)
func AddWebhookRejection(provider string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookRejectionsKey, provider, 1).Err()
}

// AddEntitlementSync increments the client-triggered sync counter for a provider
func AddEntitlementSync(provider string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, entitlementSyncsKey, provider, 1).Err()
}

// Snapshot returns all billing counters grouped by metric name.
func Snapshot() (map[string]map[string]int64, error) {
	ctx := context.Background()
	rdb := cache.GetClient()

	out := make(map[string]map[string]int64, 3)
	for name, key := range map[string]string{
		"webhook_events":     webhookEventsKey,
		"webhook_rejections": webhookRejectionsKey,
		"entitlement_syncs":  entitlementSyncsKey,
	} {
		fields, err := rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		values := make(map[string]int64, len(fields))
		for provider, raw := range fields {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			values[provider] = n
		}
		out[name] = values
	}
	return out, nil
}
