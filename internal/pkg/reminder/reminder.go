package reminder

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/stepio-app/stepio-server/app/models"
)

type Kind string

const (
	KindMedication  Kind = "medication"
	KindAppointment Kind = "appointment"
)

// Appointment reminder lead times in minutes.
const (
	appointmentLeadDay = 24 * 60
	appointmentLeadNow = 30
)

// Reminder is one scheduled notification. The ID is deterministic so
// rescheduling the same entity overwrites instead of duplicating.
type Reminder struct {
	ID       uint32    `json:"id"`
	Kind     Kind      `json:"kind"`
	EntityID string    `json:"entity_id"`
	ClerkID  string    `json:"clerk_id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	DueAt    time.Time `json:"due_at"`
}

// Scheduler queues reminders for later delivery. Scheduling the same
// entity again replaces its pending reminders.
type Scheduler interface {
	ScheduleAppointment(ctx context.Context, appt *models.Appointment) error
	ScheduleMedication(ctx context.Context, med *models.Medication) error
	CancelForEntity(ctx context.Context, kind Kind, entityID string) error
	PopDue(ctx context.Context, now time.Time, limit int64) ([]Reminder, error)
}

// ReminderID derives a stable id from the entity and its offset slot.
// FNV-32a keeps ids short enough for client notification APIs.
func ReminderID(kind Kind, entityID string, offsetMinutes int) uint32 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s:%s:%d", kind, entityID, offsetMinutes)
	return h.Sum32()
}

// appointmentReminders expands one appointment into its lead-time
// reminders, dropping any that are already in the past.
func appointmentReminders(appt *models.Appointment, now time.Time) []Reminder {
	var out []Reminder
	for _, lead := range []int{appointmentLeadDay, appointmentLeadNow} {
		due := appt.ScheduledAt.Add(-time.Duration(lead) * time.Minute)
		if !due.After(now) {
			continue
		}
		out = append(out, Reminder{
			ID:       ReminderID(KindAppointment, appt.UUID, lead),
			Kind:     KindAppointment,
			EntityID: appt.UUID,
			ClerkID:  appt.ClerkID,
			Title:    appt.Title,
			Body:     appointmentBody(appt, lead),
			DueAt:    due,
		})
	}
	return out
}

func appointmentBody(appt *models.Appointment, leadMinutes int) string {
	when := "amanhã"
	if leadMinutes == appointmentLeadNow {
		when = "em 30 minutos"
	}
	if appt.Professional != "" {
		return fmt.Sprintf("%s com %s %s", appt.Title, appt.Professional, when)
	}
	return fmt.Sprintf("%s %s", appt.Title, when)
}

// medicationReminders expands a medication into the next occurrence of
// each configured dose time. On-demand medications get no reminders.
func medicationReminders(med *models.Medication, now time.Time) []Reminder {
	if med.Frequency == models.FrequencyOnDemand {
		return nil
	}

	var out []Reminder
	for _, hhmm := range doseTimes(med) {
		due, ok := nextDailyOccurrence(hhmm, now)
		if !ok {
			continue
		}
		slot := due.Hour()*60 + due.Minute()
		out = append(out, Reminder{
			ID:       ReminderID(KindMedication, med.UUID, slot),
			Kind:     KindMedication,
			EntityID: med.UUID,
			ClerkID:  med.ClerkID,
			Title:    med.Name,
			Body:     fmt.Sprintf("Hora do medicamento: %s %s", med.Name, med.Dosage),
			DueAt:    due,
		})
	}
	return out
}

func doseTimes(med *models.Medication) []string {
	var out []string
	if med.StartTime != "" {
		out = append(out, med.StartTime)
	}
	for _, t := range strings.Split(med.ExtraTimes, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// nextDailyOccurrence returns the next time the HH:mm clock value
// occurs after now, today or tomorrow, in now's location.
func nextDailyOccurrence(hhmm string, now time.Time) (time.Time, bool) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, false
	}
	due := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	if !due.After(now) {
		due = due.AddDate(0, 0, 1)
	}
	return due, true
}
