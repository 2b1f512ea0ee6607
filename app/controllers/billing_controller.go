package controllers

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stepio-app/stepio-server/app/models"
	"github.com/stepio-app/stepio-server/internal/pkg/billing"
	"github.com/stepio-app/stepio-server/internal/pkg/entitlements"
	"github.com/stepio-app/stepio-server/internal/pkg/metrics/counter"
)

// BillingController exposes the subscription endpoints the mobile
// client calls. The entitlement source is interchangeable: Stripe in
// web builds, RevenueCat for store builds. Selection happens at boot.
type BillingController struct {
	repo            billing.Repository
	linker          *billing.Linker
	reconciler      *billing.Reconciler
	source          billing.EntitlementSource
	stripeSource    *billing.StripeSource
	rcSource        *billing.RevenueCatSource
	gateway         billing.StripeGateway
	rcWebhookSecret string
}

// NewBillingController wires the billing surface. stripeSource,
// rcSource and gateway may be nil when the matching provider is not
// configured; their endpoints then answer 503.
func NewBillingController(
	repo billing.Repository,
	linker *billing.Linker,
	reconciler *billing.Reconciler,
	source billing.EntitlementSource,
	stripeSource *billing.StripeSource,
	rcSource *billing.RevenueCatSource,
	gateway billing.StripeGateway,
	rcWebhookSecret string,
) *BillingController {
	return &BillingController{
		repo:            repo,
		linker:          linker,
		reconciler:      reconciler,
		source:          source,
		stripeSource:    stripeSource,
		rcSource:        rcSource,
		gateway:         gateway,
		rcWebhookSecret: rcWebhookSecret,
	}
}

type checkoutRequest struct {
	PriceID string `json:"price_id"`
}

// HandleCreateCheckoutSession links the caregiver to a billing
// customer (creating one on first purchase) and returns the hosted
// checkout URL.
func (bc *BillingController) HandleCreateCheckoutSession(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}
	if bc.gateway == nil {
		return bc.stripeUnavailable(c)
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.PriceID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "price_id is required",
		})
	}

	customerID, err := bc.linker.ResolveOrCreate(c.UserContext(), userCtx.ClerkID, userCtx.Email)
	if err != nil {
		log.Printf("billing: customer link failed for %s: %v", userCtx.ClerkID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "external_service_error",
			"message": fmt.Sprintf("Could not link a billing customer: %v", err),
		})
	}

	url, err := bc.gateway.NewCheckoutSession(c.UserContext(), customerID, strings.TrimSpace(req.PriceID), userCtx.ClerkID)
	if err != nil {
		log.Printf("billing: checkout session failed for %s: %v", userCtx.ClerkID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "external_service_error",
			"message": fmt.Sprintf("Could not create a checkout session: %v", err),
		})
	}

	return c.JSON(fiber.Map{"url": url})
}

// HandleCreatePortalSession returns the customer portal URL for
// managing an existing subscription. Without a billing link there is
// nothing to manage.
func (bc *BillingController) HandleCreatePortalSession(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}
	if bc.gateway == nil {
		return bc.stripeUnavailable(c)
	}

	account, err := bc.repo.GetBillingAccountByUser(userCtx.ClerkID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to load billing account",
		})
	}
	if account == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "no_billing_account",
			"message": "No subscription to manage",
		})
	}

	url, err := bc.gateway.NewPortalSession(c.UserContext(), account.StripeCustomerID)
	if err != nil {
		log.Printf("billing: portal session failed for %s: %v", userCtx.ClerkID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "external_service_error",
			"message": fmt.Sprintf("Could not create a portal session: %v", err),
		})
	}

	return c.JSON(fiber.Map{"url": url})
}

// HandleGetPlan returns the stored plan without contacting the
// provider. This is the cheap read the client calls on every launch.
func (bc *BillingController) HandleGetPlan(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	plan, err := bc.reconciler.GetPlan(c.UserContext(), userCtx.ClerkID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to load plan",
		})
	}
	return c.JSON(planResponse(plan))
}

// HandleSyncEntitlements refetches the entitlement from the active
// provider and returns the reconciled plan. Clients call this after
// returning from checkout or when the user taps "restore purchases".
func (bc *BillingController) HandleSyncEntitlements(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	_ = counter.AddEntitlementSync(bc.source.Provider())

	plan, err := bc.source.Sync(c.UserContext(), userCtx.ClerkID)
	if err != nil {
		if errors.Is(err, billing.ErrExternalService) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "external_service_error",
				"message": fmt.Sprintf("Entitlement sync failed: %v", err),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Entitlement sync failed",
		})
	}
	return c.JSON(planResponse(plan))
}

// HandleStripeWebhook receives signed Stripe events. The raw body is
// passed through untouched: the signature covers the exact bytes.
func (bc *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	if bc.stripeSource == nil {
		return bc.stripeUnavailable(c)
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	sigHeader := c.Get("Stripe-Signature")

	_ = counter.AddWebhookEvent(models.BillingProviderStripe)

	if err := bc.stripeSource.HandleWebhook(c.UserContext(), rawBody, sigHeader); err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			_ = counter.AddWebhookRejection(models.BillingProviderStripe)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "invalid_signature",
				"message": "Webhook signature verification failed",
			})
		}
		log.Printf("billing: stripe webhook processing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Webhook processing failed",
		})
	}
	return c.JSON(fiber.Map{"received": true})
}

// HandleRevenueCatWebhook receives store entitlement change
// notifications. Auth is a static shared secret; the event only names
// the subscriber, the entitlement itself is refetched from the API.
func (bc *BillingController) HandleRevenueCatWebhook(c *fiber.Ctx) error {
	if bc.rcSource == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   "not_configured",
			"message": "RevenueCat billing is not configured",
		})
	}

	_ = counter.AddWebhookEvent(models.BillingProviderRevenueCat)

	if !billing.VerifyRevenueCatWebhookAuth(c.Get("Authorization"), bc.rcWebhookSecret) {
		_ = counter.AddWebhookRejection(models.BillingProviderRevenueCat)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "Invalid webhook credentials",
		})
	}

	event, err := billing.ParseRevenueCatWebhookEvent(c.BodyRaw())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "Unparseable webhook payload",
		})
	}

	var eventRow *models.BillingWebhookEvent
	if event.EventID != "" {
		created, stored, err := bc.repo.CreateWebhookEventIfNotExists(&models.BillingWebhookEvent{
			Provider:        models.BillingProviderRevenueCat,
			ProviderEventID: event.EventID,
			EventType:       event.EventType,
			PayloadJSON:     string(c.BodyRaw()),
			SignatureValid:  true,
		})
		switch {
		case err != nil:
			log.Printf("billing: revenuecat event dedup failed: %v", err)
		case !created && stored.ProcessedAt != nil:
			// Retry delivering an already-applied event.
			return c.JSON(fiber.Map{"received": true})
		default:
			eventRow = stored
		}
	}

	// The webhook is a hint, not the source of truth: refetch the
	// subscriber from the API and reconcile from that. A failed fetch
	// leaves the event unclaimed and surfaces an error so the
	// provider's redelivery retries it.
	if _, err := bc.rcSource.Sync(c.UserContext(), event.AppUserID); err != nil {
		log.Printf("billing: revenuecat sync for %s failed: %v", event.AppUserID, err)
		if eventRow != nil {
			_ = bc.repo.RecordWebhookFailure(eventRow.ID, err.Error())
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "external_service_error",
			"message": fmt.Sprintf("Subscriber refetch failed: %v", err),
		})
	}
	if eventRow != nil {
		if err := bc.repo.MarkWebhookProcessed(eventRow.ID, ""); err != nil {
			log.Printf("billing: failed to mark revenuecat event %s processed: %v", event.EventID, err)
		}
	}
	return c.JSON(fiber.Map{"received": true})
}

func (bc *BillingController) stripeUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error":   "not_configured",
		"message": "Stripe billing is not configured",
	})
}

func planResponse(plan entitlements.Plan) fiber.Map {
	resp := fiber.Map{
		"tier":        plan.Tier,
		"status":      plan.Status,
		"is_entitled": entitlements.IsEntitled(plan),
	}
	if plan.RenewalDate != nil {
		resp["renewal_date"] = plan.RenewalDate.UTC().Format(time.RFC3339)
	}
	if plan.ProductID != "" {
		resp["product_id"] = plan.ProductID
	}
	return resp
}
