package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/stepio-app/stepio-server/app/models"
	"github.com/stepio-app/stepio-server/app/repository"
)

// MilestoneController manages the developmental milestone timeline.
// Browsing past months is a pro feature.
type MilestoneController struct {
	repo  repository.MilestoneRepository
	plans PlanProvider
}

func NewMilestoneController(repo repository.MilestoneRepository, plans PlanProvider) *MilestoneController {
	return &MilestoneController{repo: repo, plans: plans}
}

// HandleListMilestones returns the caregiver's milestones, restricted
// to the current month for free accounts.
func (mc *MilestoneController) HandleListMilestones(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	month, allHistory, ok := resolveHistoryMonth(c, mc.plans, userCtx.ClerkID)
	if !ok {
		return nil
	}

	var (
		list []models.Milestone
		err  error
	)
	if allHistory {
		list, err = mc.repo.ListByUser(userCtx.ClerkID)
	} else {
		from, to, rangeErr := monthTimeRange(month)
		if rangeErr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "invalid_request",
				"message": "month must be formatted as YYYY-MM",
			})
		}
		list, err = mc.repo.ListByUserBetween(userCtx.ClerkID, from, to)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to load milestones",
		})
	}
	return c.JSON(fiber.Map{"milestones": list})
}

// HandleCreateMilestone records a new milestone.
func (mc *MilestoneController) HandleCreateMilestone(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	var ms models.Milestone
	if err := c.BodyParser(&ms); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "Unparseable body",
		})
	}
	ms.ID = 0
	ms.UUID = uuid.New().String()
	ms.ClerkID = userCtx.ClerkID
	if err := ms.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}

	if err := mc.repo.Create(&ms); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to save milestone",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(ms)
}

// HandleUpdateMilestone replaces a milestone's fields.
func (mc *MilestoneController) HandleUpdateMilestone(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	existing, err := mc.repo.GetByUUID(userCtx.ClerkID, c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to load milestone",
		})
	}
	if existing == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "Milestone not found",
		})
	}

	var incoming models.Milestone
	if err := c.BodyParser(&incoming); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "Unparseable body",
		})
	}
	existing.Title = incoming.Title
	existing.Description = incoming.Description
	existing.AchievedOn = incoming.AchievedOn
	existing.PhotoURL = incoming.PhotoURL
	if err := existing.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}

	if err := mc.repo.Update(existing); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to save milestone",
		})
	}
	return c.JSON(existing)
}

// HandleDeleteMilestone removes a milestone.
func (mc *MilestoneController) HandleDeleteMilestone(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	if err := mc.repo.Delete(userCtx.ClerkID, c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to delete milestone",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
