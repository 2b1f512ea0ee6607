package router

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/stepio-app/stepio-server/internal/pkg/billing"
	"github.com/stepio-app/stepio-server/internal/pkg/constants"
	"github.com/stepio-app/stepio-server/internal/pkg/entitlements"
)

// WebhookRouter installs the provider callback endpoints. They sit
// outside /api: no bearer auth, no rate limiter, raw bodies preserved
// for signature verification.
type WebhookRouter struct {
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	d := getDeps()

	app.Post(constants.StripeWebhookRoute, d.billing.HandleStripeWebhook)
	app.Post(constants.RevenueCatWebhookRoute, d.billing.HandleRevenueCatWebhook)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}

// noSource serves stored plans when no billing provider is configured.
// Sync is a read of the last reconciled state instead of an error so
// local development works without provider credentials.
type noSource struct {
	rec *billing.Reconciler
}

func (n noSource) Provider() string { return "none" }

func (n noSource) Sync(ctx context.Context, clerkID string) (entitlements.Plan, error) {
	return n.rec.GetPlan(ctx, clerkID)
}
