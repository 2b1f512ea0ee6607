package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/stepio-app/stepio-server/app/models"
	"github.com/stepio-app/stepio-server/internal/pkg/entitlements"
	"github.com/stepio-app/stepio-server/internal/pkg/env"
)

// StripeGateway abstracts the Stripe SDK operations the billing core
// needs, so tests can substitute a fake.
type StripeGateway interface {
	CustomerCreator
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	NewCheckoutSession(ctx context.Context, customerID, priceID, clerkID string) (string, error)
	NewPortalSession(ctx context.Context, customerID string) (string, error)
}

// StripeSource is the webhook-driven entitlement source. Plan state is
// pushed by Stripe; Sync re-reads the last known subscription for
// client-initiated refreshes.
type StripeSource struct {
	repo          Repository
	gw            StripeGateway
	reconciler    *Reconciler
	webhookSecret string
	proPriceIDs   map[string]struct{}
}

// NewStripeSource builds the source from an explicit pro-price
// allow-list. Unknown price ids always map to the free tier, never to
// an error.
func NewStripeSource(repo Repository, gw StripeGateway, rec *Reconciler, webhookSecret string, proPriceIDs []string) *StripeSource {
	ids := make(map[string]struct{}, len(proPriceIDs))
	for _, id := range proPriceIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids[id] = struct{}{}
		}
	}
	return &StripeSource{
		repo:          repo,
		gw:            gw,
		reconciler:    rec,
		webhookSecret: webhookSecret,
		proPriceIDs:   ids,
	}
}

// NewStripeSourceFromEnv reads the webhook secret and the pro price
// allow-list (STRIPE_PRICE_IDS, comma-separated) from the environment.
func NewStripeSourceFromEnv(repo Repository, gw StripeGateway, rec *Reconciler) *StripeSource {
	return NewStripeSource(
		repo,
		gw,
		rec,
		env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		strings.Split(env.GetEnv("STRIPE_PRICE_IDS", ""), ","),
	)
}

func (s *StripeSource) Provider() string { return models.BillingProviderStripe }

// errPartialApply marks a fan-out where at least one linked user got
// the plan written. The event counts as processed; the failures are
// recorded on the event row, not surfaced to the sender.
var errPartialApply = errors.New("partial fan-out failure")

// HandleWebhook verifies, dedupes and applies one Stripe event. The
// raw body must be passed unparsed: signature verification covers the
// exact bytes. Returns ErrInvalidSignature before any mutation when
// verification fails. Partial fan-out failures are recorded but never
// returned; a failure that wrote nothing is returned so Stripe's own
// redelivery can retry the event.
func (s *StripeSource) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	created, stored, err := s.repo.CreateWebhookEventIfNotExists(&models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		return err
	}
	if !created && stored.ProcessedAt != nil {
		// Webhook retry delivering an already-applied event.
		return nil
	}
	// Either a fresh event or a redelivery of one whose processing
	// never completed; both get (re)processed.

	procErr := s.processEvent(ctx, event)
	if procErr != nil && !errors.Is(procErr, errPartialApply) {
		// Nothing durable was written. Leave the event unclaimed so
		// the next redelivery reprocesses it.
		if recErr := s.repo.RecordWebhookFailure(stored.ID, procErr.Error()); recErr != nil {
			log.Printf("billing: failed to record stripe event %s failure: %v", event.ID, recErr)
		}
		return procErr
	}
	if markErr := s.repo.MarkWebhookProcessed(stored.ID, errString(procErr)); markErr != nil {
		log.Printf("billing: failed to mark stripe event %s processed: %v", event.ID, markErr)
	}
	return nil
}

func (s *StripeSource) processEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("unmarshal checkout session: %w", err)
		}
		if session.Subscription == nil || session.Subscription.ID == "" {
			// One-time payments carry no subscription; nothing to reconcile.
			return nil
		}
		// Checkout payloads carry incomplete status; fetch the
		// authoritative subscription object instead of trusting them.
		sub, err := s.gw.GetSubscription(ctx, session.Subscription.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrExternalService, err)
		}
		return s.applySubscription(ctx, sub)

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("unmarshal subscription: %w", err)
		}
		return s.applySubscription(ctx, &sub)

	default:
		log.Printf("billing: ignoring stripe event type %s", event.Type)
		return nil
	}
}

// applySubscription fans the normalized plan out to every user linked
// to the subscription's customer. Normally that is exactly one user;
// zero linked users is logged and ignored, more than one (shared
// customer) all receive the update. Each write is independent:
// one failure never aborts the rest.
func (s *StripeSource) applySubscription(ctx context.Context, sub *stripe.Subscription) error {
	if sub == nil || sub.Customer == nil || sub.Customer.ID == "" {
		return fmt.Errorf("subscription payload missing customer id")
	}

	resolved := s.normalizeSubscription(sub)

	accounts, err := s.repo.ListBillingAccountsByCustomer(sub.Customer.ID)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		log.Printf("billing: no linked user for stripe customer %s, ignoring event", sub.Customer.ID)
		return nil
	}

	var (
		firstErr error
		applied  int
	)
	for _, account := range accounts {
		if err := s.reconciler.Apply(ctx, account.ClerkID, resolved); err != nil {
			log.Printf("billing: plan write failed for user %s (customer %s): %v",
				account.ClerkID, sub.Customer.ID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		applied++
	}
	if firstErr == nil {
		return nil
	}
	if applied > 0 {
		return fmt.Errorf("%w: %v", errPartialApply, firstErr)
	}
	return firstErr
}

// Sync re-normalizes the last known subscription for a user. With no
// recorded subscription there is nothing fresher than the stored plan.
func (s *StripeSource) Sync(ctx context.Context, clerkID string) (entitlements.Plan, error) {
	record, err := s.repo.GetUserPlan(clerkID)
	if err != nil {
		return entitlements.Free(), err
	}
	if record == nil || record.SubscriptionID == "" {
		return entitlements.FromModel(record), nil
	}

	sub, err := s.gw.GetSubscription(ctx, record.SubscriptionID)
	if err != nil {
		return entitlements.Free(), fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	resolved := s.normalizeSubscription(sub)
	if err := s.reconciler.Apply(ctx, clerkID, resolved); err != nil {
		return entitlements.Free(), err
	}
	return resolved.Plan, nil
}

func (s *StripeSource) normalizeSubscription(sub *stripe.Subscription) ResolvedEntitlement {
	priceID := ""
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}

	tier := entitlements.TierFree
	if _, ok := s.proPriceIDs[priceID]; ok {
		tier = entitlements.TierPro
	}

	status := entitlements.StatusInactive
	if sub.Status == stripe.SubscriptionStatusActive {
		status = entitlements.StatusActive
	}

	var renewal *time.Time
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		renewal = &t
	}

	return ResolvedEntitlement{
		Plan: entitlements.Plan{
			Tier:        tier,
			Status:      status,
			RenewalDate: renewal,
			ProductID:   priceID,
		},
		SubscriptionID: sub.ID,
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
