package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/stepio-app/stepio-server/app/models"
	"github.com/stepio-app/stepio-server/app/repository"
	"github.com/stepio-app/stepio-server/internal/pkg/reminder"
)

// MedicationController manages the medication list. Saving a
// medication also rebuilds its dose reminders.
type MedicationController struct {
	repo      repository.MedicationRepository
	reminders reminder.Scheduler
}

func NewMedicationController(repo repository.MedicationRepository, reminders reminder.Scheduler) *MedicationController {
	return &MedicationController{repo: repo, reminders: reminders}
}

// HandleListMedications returns all medications for the caregiver.
// The medication list is operational data, not history, so it is not
// month-gated.
func (mc *MedicationController) HandleListMedications(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	meds, err := mc.repo.ListByUser(userCtx.ClerkID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to load medications",
		})
	}
	return c.JSON(fiber.Map{"medications": meds})
}

// HandleCreateMedication creates a medication and schedules its reminders.
func (mc *MedicationController) HandleCreateMedication(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	var med models.Medication
	if err := c.BodyParser(&med); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "Unparseable body",
		})
	}
	med.ID = 0
	med.UUID = uuid.New().String()
	med.ClerkID = userCtx.ClerkID
	if err := med.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}

	if err := mc.repo.Create(&med); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to save medication",
		})
	}

	mc.rescheduleReminders(c, &med)
	return c.Status(fiber.StatusCreated).JSON(med)
}

// HandleUpdateMedication replaces a medication's fields and rebuilds
// its reminders.
func (mc *MedicationController) HandleUpdateMedication(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	existing, err := mc.repo.GetByUUID(userCtx.ClerkID, c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to load medication",
		})
	}
	if existing == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "Medication not found",
		})
	}

	var incoming models.Medication
	if err := c.BodyParser(&incoming); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "Unparseable body",
		})
	}
	existing.Name = incoming.Name
	existing.Form = incoming.Form
	existing.Dosage = incoming.Dosage
	existing.Frequency = incoming.Frequency
	existing.StartTime = incoming.StartTime
	existing.ExtraTimes = incoming.ExtraTimes
	existing.Notes = incoming.Notes
	if err := existing.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	}

	if err := mc.repo.Update(existing); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to save medication",
		})
	}

	mc.rescheduleReminders(c, existing)
	return c.JSON(existing)
}

// HandleDeleteMedication removes a medication and its reminders.
func (mc *MedicationController) HandleDeleteMedication(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}

	id := c.Params("id")
	if err := mc.repo.Delete(userCtx.ClerkID, id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to delete medication",
		})
	}

	if mc.reminders != nil {
		if err := mc.reminders.CancelForEntity(c.UserContext(), reminder.KindMedication, id); err != nil {
			log.Printf("medication: reminder cancel for %s failed: %v", id, err)
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Reminder scheduling is best-effort: the medication write has already
// committed and the client can retry from the UI.
func (mc *MedicationController) rescheduleReminders(c *fiber.Ctx, med *models.Medication) {
	if mc.reminders == nil {
		return
	}
	if err := mc.reminders.ScheduleMedication(c.UserContext(), med); err != nil {
		log.Printf("medication: reminder scheduling for %s failed: %v", med.UUID, err)
	}
}
