package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/stepio-app/stepio-server/app/models"
)

const testWebhookSecret = "whsec_test_secret"

func signedHeader(t *testing.T, payload []byte) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Header
}

func subscriptionEventPayload(eventID, eventType, subID, customerID, priceID, status string, periodEnd int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": %q,
		"data": {
			"object": {
				"id": %q,
				"customer": %q,
				"status": %q,
				"current_period_end": %d,
				"items": {"data": [{"price": {"id": %q}}]}
			}
		}
	}`, eventID, eventType, subID, customerID, status, periodEnd, priceID))
}

func newStripeFixture(repo *fakeRepo, gw *fakeGateway) *StripeSource {
	rec := NewReconciler(repo, nil, fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)})
	return NewStripeSource(repo, gw, rec, testWebhookSecret, []string{"price_monthly", "price_yearly"})
}

func TestStripeHandleWebhook_InvalidSignature(t *testing.T) {
	repo := newFakeRepo()
	repo.accounts["user_1"] = &models.BillingAccount{ClerkID: "user_1", StripeCustomerID: "cus_1"}
	src := newStripeFixture(repo, newFakeGateway())

	payload := subscriptionEventPayload("evt_1", "customer.subscription.updated", "sub_1", "cus_1", "price_monthly", "active", 0)
	err := src.HandleWebhook(context.Background(), payload, "t=1,v1=deadbeef")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSignature))

	// No event recorded, no plan touched.
	assert.Empty(t, repo.events)
	plan, _ := repo.GetUserPlan("user_1")
	assert.Nil(t, plan)
}

func TestStripeHandleWebhook_SubscriptionUpdated(t *testing.T) {
	repo := newFakeRepo()
	repo.accounts["user_1"] = &models.BillingAccount{ClerkID: "user_1", StripeCustomerID: "cus_1"}
	src := newStripeFixture(repo, newFakeGateway())

	periodEnd := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC).Unix()
	payload := subscriptionEventPayload("evt_1", "customer.subscription.updated", "sub_1", "cus_1", "price_monthly", "active", periodEnd)
	require.NoError(t, src.HandleWebhook(context.Background(), payload, signedHeader(t, payload)))

	plan, err := repo.GetUserPlan("user_1")
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, "pro", plan.Tier)
	assert.Equal(t, "active", plan.Status)
	assert.Equal(t, "price_monthly", plan.ProductID)
	assert.Equal(t, "sub_1", plan.SubscriptionID)
	require.NotNil(t, plan.RenewalDate)
	assert.Equal(t, periodEnd, plan.RenewalDate.Unix())
}

func TestStripeHandleWebhook_DuplicateDeliveryAppliesOnce(t *testing.T) {
	repo := newFakeRepo()
	repo.accounts["user_1"] = &models.BillingAccount{ClerkID: "user_1", StripeCustomerID: "cus_1"}
	src := newStripeFixture(repo, newFakeGateway())

	payload := subscriptionEventPayload("evt_1", "customer.subscription.updated", "sub_1", "cus_1", "price_monthly", "active", 0)
	require.NoError(t, src.HandleWebhook(context.Background(), payload, signedHeader(t, payload)))
	writesAfterFirst := repo.planUpserts
	planAfterFirst, _ := repo.GetUserPlan("user_1")

	require.NoError(t, src.HandleWebhook(context.Background(), payload, signedHeader(t, payload)))
	assert.Equal(t, writesAfterFirst, repo.planUpserts, "duplicate delivery must not rewrite the plan")

	planAfterSecond, _ := repo.GetUserPlan("user_1")
	assert.Equal(t, planAfterFirst.Tier, planAfterSecond.Tier)
	assert.Equal(t, planAfterFirst.Status, planAfterSecond.Status)
}

func TestStripeHandleWebhook_UnknownPriceMapsToFree(t *testing.T) {
	repo := newFakeRepo()
	repo.accounts["user_1"] = &models.BillingAccount{ClerkID: "user_1", StripeCustomerID: "cus_1"}
	src := newStripeFixture(repo, newFakeGateway())

	payload := subscriptionEventPayload("evt_1", "customer.subscription.updated", "sub_1", "cus_1", "price_mystery", "active", 0)
	require.NoError(t, src.HandleWebhook(context.Background(), payload, signedHeader(t, payload)))

	plan, _ := repo.GetUserPlan("user_1")
	require.NotNil(t, plan)
	assert.Equal(t, "free", plan.Tier)
	assert.Equal(t, "active", plan.Status)
}

func TestStripeHandleWebhook_SubscriptionDeleted(t *testing.T) {
	repo := newFakeRepo()
	repo.accounts["user_1"] = &models.BillingAccount{ClerkID: "user_1", StripeCustomerID: "cus_1"}
	src := newStripeFixture(repo, newFakeGateway())

	up := subscriptionEventPayload("evt_1", "customer.subscription.updated", "sub_1", "cus_1", "price_monthly", "active", 0)
	require.NoError(t, src.HandleWebhook(context.Background(), up, signedHeader(t, up)))

	down := subscriptionEventPayload("evt_2", "customer.subscription.deleted", "sub_1", "cus_1", "price_monthly", "canceled", 0)
	require.NoError(t, src.HandleWebhook(context.Background(), down, signedHeader(t, down)))

	plan, _ := repo.GetUserPlan("user_1")
	assert.Equal(t, "pro", plan.Tier) // price still recognized
	assert.Equal(t, "inactive", plan.Status)
}

func TestStripeHandleWebhook_CheckoutCompletedFetchesSubscription(t *testing.T) {
	repo := newFakeRepo()
	repo.accounts["user_1"] = &models.BillingAccount{ClerkID: "user_1", StripeCustomerID: "cus_1"}
	gw := newFakeGateway()

	gw.subscriptions["sub_9"] = mustSubscription(t, "sub_9", "cus_1", "price_yearly", "active")

	src := newStripeFixture(repo, gw)

	payload := []byte(`{
		"id": "evt_co",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "customer": "cus_1", "subscription": "sub_9"}}
	}`)
	require.NoError(t, src.HandleWebhook(context.Background(), payload, signedHeader(t, payload)))

	plan, _ := repo.GetUserPlan("user_1")
	require.NotNil(t, plan)
	assert.Equal(t, "pro", plan.Tier)
	assert.Equal(t, "active", plan.Status)
	assert.Equal(t, "price_yearly", plan.ProductID)
	assert.Equal(t, "sub_9", plan.SubscriptionID)
}

func TestStripeHandleWebhook_RedeliveryRetriesFailedEvent(t *testing.T) {
	repo := newFakeRepo()
	repo.accounts["user_1"] = &models.BillingAccount{ClerkID: "user_1", StripeCustomerID: "cus_1"}
	gw := newFakeGateway()
	src := newStripeFixture(repo, gw)

	payload := []byte(`{
		"id": "evt_retry",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "customer": "cus_1", "subscription": "sub_9"}}
	}`)

	// The subscription fetch fails on the first delivery. The handler
	// must surface the error so Stripe redelivers, and must not claim
	// the event as processed.
	err := src.HandleWebhook(context.Background(), payload, signedHeader(t, payload))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExternalService))

	stored := repo.events["stripe:evt_retry"]
	require.NotNil(t, stored)
	assert.Nil(t, stored.ProcessedAt)
	assert.NotEmpty(t, stored.ProcessingError)
	plan, _ := repo.GetUserPlan("user_1")
	assert.Nil(t, plan)

	// Stripe redelivers once the API is reachable again; the retry
	// reprocesses the stored event and applies the plan.
	gw.subscriptions["sub_9"] = mustSubscription(t, "sub_9", "cus_1", "price_yearly", "active")
	require.NoError(t, src.HandleWebhook(context.Background(), payload, signedHeader(t, payload)))

	plan, _ = repo.GetUserPlan("user_1")
	require.NotNil(t, plan)
	assert.Equal(t, "pro", plan.Tier)
	assert.Equal(t, "active", plan.Status)
	stored = repo.events["stripe:evt_retry"]
	assert.NotNil(t, stored.ProcessedAt)
	assert.Empty(t, stored.ProcessingError)
}

func TestStripeHandleWebhook_FanOutContinuesPastFailures(t *testing.T) {
	repo := newFakeRepo()
	repo.accounts["user_a"] = &models.BillingAccount{ClerkID: "user_a", StripeCustomerID: "cus_shared"}
	repo.accounts["user_b"] = &models.BillingAccount{ClerkID: "user_b", StripeCustomerID: "cus_shared"}
	repo.failPlanFor["user_a"] = true
	src := newStripeFixture(repo, newFakeGateway())

	payload := subscriptionEventPayload("evt_1", "customer.subscription.updated", "sub_1", "cus_shared", "price_monthly", "active", 0)
	// The webhook still succeeds: per-user failures are recorded, not
	// surfaced, so the sender sees success after verification.
	require.NoError(t, src.HandleWebhook(context.Background(), payload, signedHeader(t, payload)))

	planB, _ := repo.GetUserPlan("user_b")
	require.NotNil(t, planB)
	assert.Equal(t, "pro", planB.Tier)

	stored := repo.events["stripe:evt_1"]
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.ProcessingError)
}

func TestStripeHandleWebhook_UnlinkedCustomerIgnored(t *testing.T) {
	repo := newFakeRepo()
	src := newStripeFixture(repo, newFakeGateway())

	payload := subscriptionEventPayload("evt_1", "customer.subscription.updated", "sub_1", "cus_ghost", "price_monthly", "active", 0)
	require.NoError(t, src.HandleWebhook(context.Background(), payload, signedHeader(t, payload)))
	assert.Empty(t, repo.plans)
}

func mustSubscription(t *testing.T, id, customerID, priceID, status string) *stripe.Subscription {
	t.Helper()
	var sub stripe.Subscription
	raw := fmt.Sprintf(`{
		"id": %q,
		"customer": %q,
		"status": %q,
		"items": {"data": [{"price": {"id": %q}}]}
	}`, id, customerID, status, priceID)
	require.NoError(t, json.Unmarshal([]byte(raw), &sub))
	return &sub
}
