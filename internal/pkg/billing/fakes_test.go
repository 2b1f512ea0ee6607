package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	stripe "github.com/stripe/stripe-go/v78"

	"github.com/stepio-app/stepio-server/app/models"
	"github.com/stepio-app/stepio-server/internal/pkg/entitlements"
)

// fakeRepo is an in-memory Repository mirroring the merge/upsert
// semantics of the GORM implementation.
type fakeRepo struct {
	mu       sync.Mutex
	accounts map[string]*models.BillingAccount // by clerk id
	plans    map[string]*models.UserPlan       // by clerk id
	events   map[string]*models.BillingWebhookEvent

	planUpserts int
	failPlanFor map[string]bool
	linkSniped  bool // simulate losing the create-if-absent race once
	snipeWith   string
	nextEventID uint
	nextAccID   uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accounts:    map[string]*models.BillingAccount{},
		plans:       map[string]*models.UserPlan{},
		events:      map[string]*models.BillingWebhookEvent{},
		failPlanFor: map[string]bool{},
	}
}

func (f *fakeRepo) GetBillingAccountByUser(clerkID string) (*models.BillingAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if acc, ok := f.accounts[clerkID]; ok {
		cp := *acc
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) CreateBillingAccountIfAbsent(account *models.BillingAccount) (bool, *models.BillingAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linkSniped {
		// A concurrent call committed first: the insert is a no-op.
		f.linkSniped = false
		f.nextAccID++
		winner := &models.BillingAccount{
			ID:               f.nextAccID,
			ClerkID:          account.ClerkID,
			StripeCustomerID: f.snipeWith,
		}
		f.accounts[account.ClerkID] = winner
		cp := *winner
		return false, &cp, nil
	}
	if existing, ok := f.accounts[account.ClerkID]; ok {
		cp := *existing
		return false, &cp, nil
	}
	f.nextAccID++
	stored := *account
	stored.ID = f.nextAccID
	f.accounts[account.ClerkID] = &stored
	cp := stored
	return true, &cp, nil
}

func (f *fakeRepo) ListBillingAccountsByCustomer(stripeCustomerID string) ([]models.BillingAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BillingAccount
	for _, acc := range f.accounts {
		if acc.StripeCustomerID == stripeCustomerID {
			out = append(out, *acc)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetUserPlan(clerkID string) (*models.UserPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if plan, ok := f.plans[clerkID]; ok {
		cp := *plan
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepo) UpsertUserPlan(plan *models.UserPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPlanFor[plan.ClerkID] {
		return fmt.Errorf("simulated write failure for %s", plan.ClerkID)
	}
	f.planUpserts++

	existing, ok := f.plans[plan.ClerkID]
	if !ok {
		cp := *plan
		f.plans[plan.ClerkID] = &cp
		return nil
	}
	existing.Tier = plan.Tier
	existing.Status = plan.Status
	existing.SyncedAt = plan.SyncedAt
	if plan.RenewalDate != nil {
		existing.RenewalDate = plan.RenewalDate
	}
	if plan.ProductID != "" {
		existing.ProductID = plan.ProductID
	}
	if plan.SubscriptionID != "" {
		existing.SubscriptionID = plan.SubscriptionID
	}
	return nil
}

func (f *fakeRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := event.Provider + ":" + event.ProviderEventID
	if stored, ok := f.events[key]; ok {
		cp := *stored
		return false, &cp, nil
	}
	f.nextEventID++
	stored := *event
	stored.ID = f.nextEventID
	f.events[key] = &stored
	cp := stored
	return true, &cp, nil
}

func (f *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range f.events {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
			return nil
		}
	}
	return errors.New("event not found")
}

func (f *fakeRepo) RecordWebhookFailure(id uint, processingError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range f.events {
		if ev.ID == id {
			ev.ProcessingError = processingError
			return nil
		}
	}
	return errors.New("event not found")
}

type fakeGateway struct {
	mu            sync.Mutex
	subscriptions map[string]*stripe.Subscription
	created       []string
	failCreate    bool
	customerSeq   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{subscriptions: map[string]*stripe.Subscription{}}
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, email, clerkID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreate {
		return "", errors.New("stripe unavailable")
	}
	g.customerSeq++
	id := fmt.Sprintf("cus_fake_%d", g.customerSeq)
	g.created = append(g.created, id)
	return id, nil
}

func (g *fakeGateway) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sub, ok := g.subscriptions[id]; ok {
		return sub, nil
	}
	return nil, errors.New("no such subscription")
}

func (g *fakeGateway) NewCheckoutSession(ctx context.Context, customerID, priceID, clerkID string) (string, error) {
	return "https://checkout.test/" + customerID, nil
}

func (g *fakeGateway) NewPortalSession(ctx context.Context, customerID string) (string, error) {
	return "https://portal.test/" + customerID, nil
}

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

type fakeCache struct {
	mu          sync.Mutex
	store       map[string]entitlements.Plan
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string]entitlements.Plan{}}
}

func (c *fakeCache) Get(ctx context.Context, clerkID string) (entitlements.Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	plan, ok := c.store[clerkID]
	return plan, ok
}

func (c *fakeCache) Set(ctx context.Context, clerkID string, plan entitlements.Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[clerkID] = plan
}

func (c *fakeCache) Invalidate(ctx context.Context, clerkID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, clerkID)
	c.invalidated = append(c.invalidated, clerkID)
}
