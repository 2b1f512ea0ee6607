package billing

import (
	"context"
	"fmt"
	"log"

	"github.com/stepio-app/stepio-server/app/models"
)

// CustomerCreator is the single processor call the linker needs.
type CustomerCreator interface {
	CreateCustomer(ctx context.Context, email, clerkID string) (string, error)
}

// Linker maintains the one-to-one mapping between internal users and
// Stripe customer ids. The mapping is created lazily on the first
// billing interaction and is immutable afterwards. Concurrency safety
// relies on the storage-level create-if-absent guarantee, not locks:
// a call that loses the insert race discards its freshly created
// customer and adopts the stored winner.
//
// The RevenueCat variant needs no linker at all - the store is
// configured to use the internal user id as its subscriber id.
type Linker struct {
	repo Repository
	gw   CustomerCreator
}

func NewLinker(repo Repository, gw CustomerCreator) *Linker {
	return &Linker{repo: repo, gw: gw}
}

// ResolveOrCreate returns the Stripe customer id for a user, creating
// the customer and the link on first use. Idempotent: a second call
// performs no external calls.
func (l *Linker) ResolveOrCreate(ctx context.Context, clerkID, emailHint string) (string, error) {
	if clerkID == "" {
		return "", fmt.Errorf("clerk_id is required")
	}

	account, err := l.repo.GetBillingAccountByUser(clerkID)
	if err != nil {
		return "", err
	}
	if account != nil {
		return account.StripeCustomerID, nil
	}

	customerID, err := l.gw.CreateCustomer(ctx, emailHint, clerkID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	created, stored, err := l.repo.CreateBillingAccountIfAbsent(&models.BillingAccount{
		ClerkID:          clerkID,
		StripeCustomerID: customerID,
		Email:            emailHint,
	})
	if err != nil {
		return "", err
	}
	if !created {
		// Lost the race against a concurrent first call: keep the
		// winner's link, orphan the extra Stripe customer.
		log.Printf("billing: discarding stripe customer %s for user %s, link already exists (%s)",
			customerID, clerkID, stored.StripeCustomerID)
	}
	return stored.StripeCustomerID, nil
}
