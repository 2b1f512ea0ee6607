package controllers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stepio-app/stepio-server/app/models"
	"github.com/stepio-app/stepio-server/app/repository"
)

// ExportController produces the CSV report caregivers hand to
// doctors and therapists. Export is a pro feature.
type ExportController struct {
	logs  repository.DailyLogRepository
	plans PlanProvider
}

func NewExportController(logs repository.DailyLogRepository, plans PlanProvider) *ExportController {
	return &ExportController{logs: logs, plans: plans}
}

// HandleExportDailyLogsCSV streams the daily log history as CSV, the
// whole history or one ?month=YYYY-MM. Column headers are in
// Portuguese to match the mobile client locale.
func (ec *ExportController) HandleExportDailyLogsCSV(c *fiber.Ctx) error {
	userCtx, ok := requireUser(c)
	if !ok {
		return nil
	}
	if !isEntitled(c, ec.plans, userCtx.ClerkID) {
		return proRequired(c)
	}

	var (
		entries []models.DailyLogEntry
		err     error
	)
	if month := c.Query("month"); month != "" {
		first, last, rangeErr := monthDayRange(month)
		if rangeErr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "invalid_request",
				"message": "month must be formatted as YYYY-MM",
			})
		}
		entries, err = ec.logs.ListByUserDayRange(userCtx.ClerkID, first, last)
	} else {
		entries, err = ec.logs.ListByUser(userCtx.ClerkID)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to load daily logs",
		})
	}

	data, err := buildDailyLogCSV(entries)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Failed to build CSV",
		})
	}

	filename := fmt.Sprintf("stepio-diario-%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(data)
}

func buildDailyLogCSV(entries []models.DailyLogEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Data", "Humor", "Alimentação", "Sono", "Crises"})
	for _, e := range entries {
		_ = w.Write([]string{e.Day, e.Mood, e.Food, e.Sleep, e.Crisis})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
