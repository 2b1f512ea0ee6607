package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stepio-app/stepio-server/app/models"
	"github.com/stepio-app/stepio-server/app/repository"
)

// ChildController manages the single child profile per caregiver.
type ChildController struct {
	repo repository.ChildProfileRepository
}

func NewChildController(repo repository.ChildProfileRepository) *ChildController {
	return &ChildController{repo: repo}
}

// HandleGetChild returns the caregiver's child profile, 404 when none
// has been created yet.
func (cc *ChildController) HandleGetChild(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	profile, err := cc.repo.GetByUser(userCtx.ClerkID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to load child profile",
		})
	}
	if profile == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "No child profile yet",
		})
	}
	return c.JSON(profile)
}

// HandlePutChild creates or replaces the caregiver's child profile.
func (cc *ChildController) HandlePutChild(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	var profile models.ChildProfile
	if err := c.BodyParser(&profile); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "Unparseable body",
		})
	}
	profile.ID = 0
	profile.ClerkID = userCtx.ClerkID
	if err := profile.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}

	if err := cc.repo.Upsert(&profile); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to save child profile",
		})
	}
	return c.JSON(profile)
}

// HandleDeleteChild removes the caregiver's child profile.
func (cc *ChildController) HandleDeleteChild(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	if err := cc.repo.Delete(userCtx.ClerkID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to delete child profile",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
