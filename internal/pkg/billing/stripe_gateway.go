package billing

import (
	"context"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v78"
	stripeclient "github.com/stripe/stripe-go/v78/client"

	"github.com/stepio-app/stepio-server/internal/pkg/env"
)

// stripeGateway is the SDK-backed StripeGateway. The client is
// explicitly constructed and injected, no package-level SDK state.
type stripeGateway struct {
	api        *stripeclient.API
	successURL string
	cancelURL  string
	portalURL  string
}

// NewStripeGateway builds a gateway from an initialized Stripe client.
func NewStripeGateway(api *stripeclient.API, successURL, cancelURL, portalReturnURL string) StripeGateway {
	return &stripeGateway{
		api:        api,
		successURL: successURL,
		cancelURL:  cancelURL,
		portalURL:  portalReturnURL,
	}
}

// NewStripeGatewayFromEnv constructs the SDK client from STRIPE_SECRET_KEY
// and derives the redirect URLs from APP_URL.
func NewStripeGatewayFromEnv() StripeGateway {
	api := &stripeclient.API{}
	api.Init(env.GetEnv("STRIPE_SECRET_KEY", ""), nil)

	base := strings.TrimRight(env.GetEnv("APP_URL", "http://localhost:8080"), "/")
	return NewStripeGateway(api,
		base+"/pagamento/sucesso",
		base+"/pagamento/cancelado",
		base+"/planos",
	)
}

func (g *stripeGateway) CreateCustomer(ctx context.Context, email, clerkID string) (string, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata("clerk_id", clerkID)

	customer, err := g.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

func (g *stripeGateway) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	return g.api.Subscriptions.Get(id, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
}

func (g *stripeGateway) NewCheckoutSession(ctx context.Context, customerID, priceID, clerkID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Customer:   stripe.String(customerID),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata("clerk_id", clerkID)

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	if session.URL == "" {
		return "", fmt.Errorf("stripe checkout session %s has no url", session.ID)
	}
	return session.URL, nil
}

func (g *stripeGateway) NewPortalSession(ctx context.Context, customerID string) (string, error) {
	session, err := g.api.BillingPortalSessions.New(&stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(g.portalURL),
	})
	if err != nil {
		return "", err
	}
	return session.URL, nil
}
