package billing

import (
	"context"
	"errors"
	"time"

	"github.com/stepio-app/stepio-server/internal/pkg/entitlements"
)

// Sentinel errors surfaced to the transport layer for HTTP mapping.
var (
	// ErrInvalidSignature indicates a webhook payload failed signature
	// verification. The request is dropped without any plan mutation.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrExternalService indicates the payment processor or entitlement
	// store returned a failure.
	ErrExternalService = errors.New("external billing service error")
	// ErrNoCustomerLink indicates an operation requiring an existing
	// customer link found none (e.g. portal session before checkout).
	ErrNoCustomerLink = errors.New("no billing customer linked")
)

// ResolvedEntitlement is the normalized outcome a source hands to the
// reconciler: the canonical plan plus the provider subscription id that
// produced it (empty when the provider has no subscription object).
type ResolvedEntitlement struct {
	Plan           entitlements.Plan
	SubscriptionID string
}

// EntitlementSource normalizes an external billing system's state into
// the canonical plan. Two implementations exist (Stripe webhook-driven,
// RevenueCat poll-driven), selected once at bootstrap by configuration.
type EntitlementSource interface {
	Provider() string
	// Sync pulls the provider's current entitlement state for one user,
	// applies it through the reconciler and returns the resulting plan.
	Sync(ctx context.Context, clerkID string) (entitlements.Plan, error)
}

// Clock abstracts time for deterministic expiry-boundary tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock used outside of tests.
func SystemClock() Clock { return systemClock{} }
