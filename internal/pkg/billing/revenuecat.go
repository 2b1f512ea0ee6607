package billing

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stepio-app/stepio-server/app/models"
	"github.com/stepio-app/stepio-server/internal/pkg/entitlements"
	"github.com/stepio-app/stepio-server/internal/pkg/env"
)

const defaultRevenueCatAPIBaseURL = "https://api.revenuecat.com/v1"

// RevenueCatSource is the poll-driven entitlement source. The store is
// configured with the internal user id as its subscriber id, so no
// customer link is needed: Sync fetches the subscriber's entitlements
// by internal id and reconciles the plan from them.
type RevenueCatSource struct {
	reconciler     *Reconciler
	apiKey         string
	apiBaseURL     string
	entitlementKey string
	httpClient     *http.Client
	clock          Clock
}

func NewRevenueCatSource(rec *Reconciler, apiKey, apiBaseURL, entitlementKey string, clock Clock) *RevenueCatSource {
	if apiBaseURL == "" {
		apiBaseURL = defaultRevenueCatAPIBaseURL
	}
	if entitlementKey == "" {
		entitlementKey = "pro"
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &RevenueCatSource{
		reconciler:     rec,
		apiKey:         apiKey,
		apiBaseURL:     strings.TrimRight(apiBaseURL, "/"),
		entitlementKey: entitlementKey,
		clock:          clock,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func NewRevenueCatSourceFromEnv(rec *Reconciler) *RevenueCatSource {
	return NewRevenueCatSource(
		rec,
		strings.TrimSpace(env.GetEnv("REVENUECAT_API_KEY", "")),
		strings.TrimSpace(env.GetEnv("REVENUECAT_API_BASE_URL", defaultRevenueCatAPIBaseURL)),
		strings.TrimSpace(env.GetEnv("REVENUECAT_ENTITLEMENT", "pro")),
		nil,
	)
}

func (s *RevenueCatSource) Provider() string { return models.BillingProviderRevenueCat }

// Sync fetches the subscriber's entitlement record, normalizes it and
// applies it through the reconciler. A 404 means "no entitlements" and
// is not a fault; the user simply reconciles to free/inactive.
func (s *RevenueCatSource) Sync(ctx context.Context, clerkID string) (entitlements.Plan, error) {
	if strings.TrimSpace(clerkID) == "" {
		return entitlements.Free(), errors.New("clerk_id is required")
	}

	resolved, err := s.fetchEntitlement(ctx, clerkID)
	if err != nil {
		return entitlements.Free(), err
	}
	if err := s.reconciler.Apply(ctx, clerkID, resolved); err != nil {
		return entitlements.Free(), err
	}
	return resolved.Plan, nil
}

func (s *RevenueCatSource) fetchEntitlement(ctx context.Context, clerkID string) (ResolvedEntitlement, error) {
	endpoint := s.apiBaseURL + "/subscribers/" + url.PathEscape(clerkID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ResolvedEntitlement{}, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return ResolvedEntitlement{}, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode == http.StatusNotFound {
		// Unknown subscriber: empty entitlement set, not an error.
		return ResolvedEntitlement{Plan: entitlements.Free()}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ResolvedEntitlement{}, fmt.Errorf("%w: revenuecat subscriber request failed: status=%d body=%s",
			ErrExternalService, resp.StatusCode, string(body))
	}

	type rawEntitlement struct {
		ExpiresDate       *time.Time `json:"expires_date"`
		ProductIdentifier string     `json:"product_identifier"`
	}
	type rawResponse struct {
		Subscriber struct {
			Entitlements map[string]rawEntitlement `json:"entitlements"`
		} `json:"subscriber"`
	}

	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return ResolvedEntitlement{}, fmt.Errorf("%w: invalid revenuecat response: %v", ErrExternalService, err)
	}

	ent, ok := raw.Subscriber.Entitlements[s.entitlementKey]
	if !ok {
		return ResolvedEntitlement{Plan: entitlements.Free()}, nil
	}

	// No expiry means a perpetual grant.
	active := ent.ExpiresDate == nil || ent.ExpiresDate.After(s.clock.Now())

	plan := entitlements.Plan{
		Tier:        entitlements.TierFree,
		Status:      entitlements.StatusInactive,
		RenewalDate: ent.ExpiresDate,
		ProductID:   ent.ProductIdentifier,
	}
	if active {
		plan.Tier = entitlements.TierPro
		plan.Status = entitlements.StatusActive
	}
	return ResolvedEntitlement{Plan: plan}, nil
}

// RevenueCatWebhookEvent is the subset of the store's webhook payload
// the server acts on: the event id for dedup and the subscriber the
// sync should run for.
type RevenueCatWebhookEvent struct {
	EventID   string
	EventType string
	AppUserID string
}

func ParseRevenueCatWebhookEvent(payload []byte) (*RevenueCatWebhookEvent, error) {
	var raw struct {
		Event struct {
			ID        string `json:"id"`
			Type      string `json:"type"`
			AppUserID string `json:"app_user_id"`
		} `json:"event"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.Event.AppUserID) == "" {
		return nil, errors.New("revenuecat webhook payload missing app_user_id")
	}
	return &RevenueCatWebhookEvent{
		EventID:   strings.TrimSpace(raw.Event.ID),
		EventType: strings.TrimSpace(raw.Event.Type),
		AppUserID: strings.TrimSpace(raw.Event.AppUserID),
	}, nil
}

// VerifyRevenueCatWebhookAuth compares the webhook Authorization header
// against the configured static secret in constant time. An empty
// configured secret disables the check (dev setups).
func VerifyRevenueCatWebhookAuth(headerValue, configuredSecret string) bool {
	secret := strings.TrimSpace(configuredSecret)
	if secret == "" {
		return true
	}
	got := strings.TrimSpace(headerValue)
	return subtle.ConstantTimeCompare([]byte(got), []byte(secret)) == 1
}
