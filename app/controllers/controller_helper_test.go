package controllers

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/stepio-app/stepio-server/internal/pkg/entitlements"
)

type fixedPlans struct {
	plan entitlements.Plan
}

func (f fixedPlans) GetPlan(ctx context.Context, clerkID string) (entitlements.Plan, error) {
	return f.plan, nil
}

// historyMonthResult captures one resolveHistoryMonth call made inside
// a fiber handler so the table test below can assert on it.
type historyMonthResult struct {
	month      string
	allHistory bool
	gated      bool
	status     int
}

func resolveForRequest(t *testing.T, plans PlanProvider, target string) historyMonthResult {
	t.Helper()

	var res historyMonthResult
	app := fiber.New()
	app.Get("/history", func(c *fiber.Ctx) error {
		month, all, ok := resolveHistoryMonth(c, plans, "user_test")
		res.month = month
		res.allHistory = all
		res.gated = !ok
		return nil
	})

	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	assert.NoError(t, err)
	res.status = resp.StatusCode
	return res
}

func TestResolveHistoryMonth(t *testing.T) {
	free := fixedPlans{plan: entitlements.Free()}
	pro := fixedPlans{plan: entitlements.Plan{
		Tier:   entitlements.TierPro,
		Status: entitlements.StatusActive,
	}}
	thisMonth := currentMonth()

	got := resolveForRequest(t, free, "/history")
	assert.Equal(t, thisMonth, got.month)
	assert.False(t, got.allHistory)
	assert.False(t, got.gated)

	got = resolveForRequest(t, pro, "/history")
	assert.True(t, got.allHistory)
	assert.False(t, got.gated)

	got = resolveForRequest(t, free, "/history?month="+thisMonth)
	assert.Equal(t, thisMonth, got.month)
	assert.False(t, got.gated)

	// Free accounts may not reach back past the current month.
	got = resolveForRequest(t, free, "/history?month=2020-01")
	assert.True(t, got.gated)
	assert.Equal(t, fiber.StatusForbidden, got.status)

	got = resolveForRequest(t, pro, "/history?month=2020-01")
	assert.Equal(t, "2020-01", got.month)
	assert.False(t, got.allHistory)
	assert.False(t, got.gated)

	got = resolveForRequest(t, free, "/history?month=notamonth")
	assert.True(t, got.gated)
	assert.Equal(t, fiber.StatusBadRequest, got.status)
}

func TestMonthTimeRange(t *testing.T) {
	t.Parallel()

	from, to, err := monthTimeRange("2026-03")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), to)

	_, _, err = monthTimeRange("march 2026")
	assert.Error(t, err)

	_, _, err = monthTimeRange("2026-13")
	assert.Error(t, err)
}

func TestMonthDayRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		month string
		first string
		last  string
	}{
		{month: "2026-01", first: "2026-01-01", last: "2026-01-31"},
		{month: "2026-02", first: "2026-02-01", last: "2026-02-28"},
		{month: "2024-02", first: "2024-02-01", last: "2024-02-29"},
		{month: "2026-04", first: "2026-04-01", last: "2026-04-30"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.month, func(t *testing.T) {
			t.Parallel()
			first, last, err := monthDayRange(tc.month)
			assert.NoError(t, err)
			assert.Equal(t, tc.first, first)
			assert.Equal(t, tc.last, last)
		})
	}
}

func TestCurrentMonthFormat(t *testing.T) {
	month := currentMonth()
	parsed, err := time.Parse("2006-01", month)
	assert.NoError(t, err)
	assert.Equal(t, time.Now().UTC().Year(), parsed.Year())
}
