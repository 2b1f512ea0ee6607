package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/stepio-app/stepio-server/app/models"
	"github.com/stepio-app/stepio-server/app/repository"
)

// DailyLogController manages the one-entry-per-day mood and behavior
// log. Browsing past months is a pro feature.
type DailyLogController struct {
	repo  repository.DailyLogRepository
	plans PlanProvider
}

func NewDailyLogController(repo repository.DailyLogRepository, plans PlanProvider) *DailyLogController {
	return &DailyLogController{repo: repo, plans: plans}
}

// HandleListDailyLogs returns entries for the selected month, or the
// full history for pro accounts when no month is given.
func (dc *DailyLogController) HandleListDailyLogs(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	month, allHistory, ok := resolveHistoryMonth(c, dc.plans, userCtx.ClerkID)
	if !ok {
		return nil
	}

	var (
		list []models.DailyLogEntry
		err  error
	)
	if allHistory {
		list, err = dc.repo.ListByUser(userCtx.ClerkID)
	} else {
		fromDay, toDay, rangeErr := monthDayRange(month)
		if rangeErr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "invalid_request",
				"message": "month must be formatted as YYYY-MM",
			})
		}
		list, err = dc.repo.ListByUserDayRange(userCtx.ClerkID, fromDay, toDay)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to load daily logs",
		})
	}
	return c.JSON(fiber.Map{"daily_logs": list})
}

// HandleSaveDailyLog creates or overwrites the entry for one calendar
// day. The (user, day) slot is the identity; saving twice replaces
// mood, food, sleep and crisis in place.
func (dc *DailyLogController) HandleSaveDailyLog(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	var entry models.DailyLogEntry
	if err := c.BodyParser(&entry); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "Unparseable body",
		})
	}
	if _, err := time.Parse("2006-01-02", entry.Day); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "date must be formatted as YYYY-MM-DD",
		})
	}
	entry.ID = 0
	entry.UUID = uuid.New().String()
	entry.ClerkID = userCtx.ClerkID
	if err := entry.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}

	if err := dc.repo.UpsertForDay(&entry); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to save daily log",
		})
	}

	stored, err := dc.repo.GetByUserDay(userCtx.ClerkID, entry.Day)
	if err != nil || stored == nil {
		return c.JSON(entry)
	}
	return c.JSON(stored)
}

// HandleDeleteDailyLog removes one entry.
func (dc *DailyLogController) HandleDeleteDailyLog(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	if err := dc.repo.Delete(userCtx.ClerkID, c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to delete daily log",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
