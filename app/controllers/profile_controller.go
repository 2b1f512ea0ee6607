package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stepio-app/stepio-server/app/repository"
	"github.com/stepio-app/stepio-server/internal/pkg/entitlements"
)

// ProfileController returns account information for the authenticated
// caregiver, including the effective plan the client gates its UI on.
type ProfileController struct {
	users repository.UserRepository
	plans PlanProvider
}

func NewProfileController(users repository.UserRepository, plans PlanProvider) *ProfileController {
	return &ProfileController{users: users, plans: plans}
}

// HandleGetProfile returns the user record and plan summary.
func (pc *ProfileController) HandleGetProfile(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	user, err := pc.users.GetByClerkID(userCtx.ClerkID)
	if err != nil || user == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to load user",
		})
	}

	plan, err := pc.plans.GetPlan(c.UserContext(), userCtx.ClerkID)
	if err != nil {
		plan = entitlements.Free()
	}

	// Refresh last-seen timestamp best-effort.
	_ = pc.users.TouchLastSeen(userCtx.ClerkID)

	return c.JSON(fiber.Map{
		"id":           user.ID,
		"clerk_id":     user.ClerkID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"created_at":   user.CreatedAt.UTC().Format(time.RFC3339),
		"plan":         planResponse(plan),
	})
}
