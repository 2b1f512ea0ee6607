package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stepio-app/stepio-server/internal/pkg/entitlements"
	"github.com/stepio-app/stepio-server/internal/pkg/usercontext"
)

// PlanProvider resolves the effective plan for a caregiver. Satisfied
// by billing.Reconciler.
type PlanProvider interface {
	GetPlan(ctx context.Context, clerkID string) (entitlements.Plan, error)
}

// requireUser pulls the authenticated user context or writes a 401.
// The bool reports whether the request may proceed.
func requireUser(c *fiber.Ctx) (usercontext.UserContext, bool) {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "Missing or invalid authentication",
		})
		return userCtx, false
	}
	return userCtx, true
}

// isEntitled resolves the caregiver's plan and applies the pro gate.
// Resolution errors degrade to free rather than failing the request.
func isEntitled(c *fiber.Ctx, plans PlanProvider, clerkID string) bool {
	plan, err := plans.GetPlan(c.UserContext(), clerkID)
	if err != nil {
		return false
	}
	return entitlements.IsEntitled(plan)
}

// proRequired writes the 403 payload the mobile client keys its
// upgrade prompt on.
func proRequired(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error":   "pro_required",
		"message": "This feature requires an active Pro subscription",
	})
}

// monthTimeRange parses a YYYY-MM month into the [from, to) window in UTC.
func monthTimeRange(month string) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, from.AddDate(0, 1, 0), nil
}

// monthDayRange returns the first and last YYYY-MM-DD day of a YYYY-MM month.
func monthDayRange(month string) (string, string, error) {
	from, to, err := monthTimeRange(month)
	if err != nil {
		return "", "", err
	}
	return from.Format("2006-01-02"), to.AddDate(0, 0, -1).Format("2006-01-02"), nil
}

func currentMonth() string {
	return time.Now().UTC().Format("2006-01")
}

// resolveHistoryMonth applies the history gate to an optional ?month=
// query. Free accounts only see the current calendar month; an empty
// month means "everything" for pro and "current month" for free. When
// ok is false the response has already been written.
func resolveHistoryMonth(c *fiber.Ctx, plans PlanProvider, clerkID string) (month string, allHistory bool, ok bool) {
	requested := c.Query("month")
	pro := isEntitled(c, plans, clerkID)

	if requested == "" {
		if pro {
			return "", true, true
		}
		return currentMonth(), false, true
	}

	if _, _, parseErr := monthTimeRange(requested); parseErr != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "month must be formatted as YYYY-MM",
		})
		return "", false, false
	}
	if !pro && requested != currentMonth() {
		_ = proRequired(c)
		return "", false, false
	}
	return requested, false, true
}
