package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/stepio-app/stepio-server/app/models"
	"github.com/stepio-app/stepio-server/app/repository"
	"github.com/stepio-app/stepio-server/internal/pkg/reminder"
)

// AppointmentController manages therapy, doctor and school events.
// Listing past months is a pro feature.
type AppointmentController struct {
	repo      repository.AppointmentRepository
	plans     PlanProvider
	reminders reminder.Scheduler
}

func NewAppointmentController(repo repository.AppointmentRepository, plans PlanProvider, reminders reminder.Scheduler) *AppointmentController {
	return &AppointmentController{repo: repo, plans: plans, reminders: reminders}
}

// HandleListAppointments returns the caregiver's appointments,
// restricted to the current month for free accounts.
func (ac *AppointmentController) HandleListAppointments(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	month, allHistory, ok := resolveHistoryMonth(c, ac.plans, userCtx.ClerkID)
	if !ok {
		return nil
	}

	var (
		appts []models.Appointment
		err   error
	)
	if allHistory {
		appts, err = ac.repo.ListByUser(userCtx.ClerkID)
	} else {
		from, to, rangeErr := monthTimeRange(month)
		if rangeErr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "invalid_request",
				"message": "month must be formatted as YYYY-MM",
			})
		}
		appts, err = ac.repo.ListByUserBetween(userCtx.ClerkID, from, to)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to load appointments",
		})
	}
	return c.JSON(fiber.Map{"appointments": appts})
}

// HandleCreateAppointment creates an appointment and schedules its
// 24h and 30min reminders.
func (ac *AppointmentController) HandleCreateAppointment(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	var appt models.Appointment
	if err := c.BodyParser(&appt); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "Unparseable body",
		})
	}
	appt.ID = 0
	appt.UUID = uuid.New().String()
	appt.ClerkID = userCtx.ClerkID
	if err := appt.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}

	if err := ac.repo.Create(&appt); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to save appointment",
		})
	}

	ac.rescheduleReminders(c, &appt)
	return c.Status(fiber.StatusCreated).JSON(appt)
}

// HandleUpdateAppointment replaces an appointment's fields and
// rebuilds its reminders.
func (ac *AppointmentController) HandleUpdateAppointment(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	existing, err := ac.repo.GetByUUID(userCtx.ClerkID, c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to load appointment",
		})
	}
	if existing == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "Appointment not found",
		})
	}

	var incoming models.Appointment
	if err := c.BodyParser(&incoming); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "Unparseable body",
		})
	}
	existing.Title = incoming.Title
	existing.Professional = incoming.Professional
	existing.ScheduledAt = incoming.ScheduledAt
	existing.Kind = incoming.Kind
	existing.Notes = incoming.Notes
	if err := existing.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}

	if err := ac.repo.Update(existing); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to save appointment",
		})
	}

	ac.rescheduleReminders(c, existing)
	return c.JSON(existing)
}

// HandleDeleteAppointment removes an appointment and its reminders.
func (ac *AppointmentController) HandleDeleteAppointment(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	id := c.Params("id")
	if err := ac.repo.Delete(userCtx.ClerkID, id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to delete appointment",
		})
	}

	if ac.reminders != nil {
		if err := ac.reminders.CancelForEntity(c.UserContext(), reminder.KindAppointment, id); err != nil {
			log.Printf("appointment: reminder cancel for %s failed: %v", id, err)
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ac *AppointmentController) rescheduleReminders(c *fiber.Ctx, appt *models.Appointment) {
	if ac.reminders == nil {
		return
	}
	if err := ac.reminders.ScheduleAppointment(c.UserContext(), appt); err != nil {
		log.Printf("appointment: reminder scheduling for %s failed: %v", appt.UUID, err)
	}
}
