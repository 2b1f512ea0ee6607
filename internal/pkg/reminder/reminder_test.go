package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepio-app/stepio-server/app/models"
)

func TestReminderID_Deterministic(t *testing.T) {
	a := ReminderID(KindAppointment, "uuid-1", 30)
	b := ReminderID(KindAppointment, "uuid-1", 30)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, ReminderID(KindAppointment, "uuid-1", 1440))
	assert.NotEqual(t, a, ReminderID(KindAppointment, "uuid-2", 30))
	assert.NotEqual(t, a, ReminderID(KindMedication, "uuid-1", 30))
}

func TestAppointmentReminders_LeadTimes(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	appt := &models.Appointment{
		UUID:        "appt-1",
		ClerkID:     "user_1",
		Title:       "Fonoaudiologia",
		ScheduledAt: now.Add(48 * time.Hour),
	}

	reminders := appointmentReminders(appt, now)
	require.Len(t, reminders, 2)
	assert.Equal(t, appt.ScheduledAt.Add(-24*time.Hour), reminders[0].DueAt)
	assert.Equal(t, appt.ScheduledAt.Add(-30*time.Minute), reminders[1].DueAt)
	assert.Equal(t, "user_1", reminders[0].ClerkID)
}

func TestAppointmentReminders_SkipsPastLeadTimes(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	// Appointment in 2 hours: the 24h reminder is already past.
	appt := &models.Appointment{UUID: "appt-1", ScheduledAt: now.Add(2 * time.Hour)}
	reminders := appointmentReminders(appt, now)
	require.Len(t, reminders, 1)
	assert.Equal(t, appt.ScheduledAt.Add(-30*time.Minute), reminders[0].DueAt)

	// Appointment already started: nothing to remind.
	past := &models.Appointment{UUID: "appt-2", ScheduledAt: now.Add(-time.Hour)}
	assert.Empty(t, appointmentReminders(past, now))
}

func TestMedicationReminders_DoseTimes(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	med := &models.Medication{
		UUID:       "med-1",
		ClerkID:    "user_1",
		Name:       "Risperidona",
		Frequency:  models.FrequencyEvery12h,
		StartTime:  "08:00",
		ExtraTimes: "20:00",
	}

	reminders := medicationReminders(med, now)
	require.Len(t, reminders, 2)

	// 08:00 already passed today, so it rolls to tomorrow.
	assert.Equal(t, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), reminders[0].DueAt)
	// 20:00 is still ahead today.
	assert.Equal(t, time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC), reminders[1].DueAt)
}

func TestMedicationReminders_OnDemandHasNone(t *testing.T) {
	med := &models.Medication{
		UUID:      "med-1",
		Frequency: models.FrequencyOnDemand,
		StartTime: "08:00",
	}
	assert.Empty(t, medicationReminders(med, time.Now()))
}

func TestNextDailyOccurrence(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

	due, ok := nextDailyOccurrence("11:00", now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC), due)

	due, ok = nextDailyOccurrence("10:30", now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC), due)

	_, ok = nextDailyOccurrence("25:99", now)
	assert.False(t, ok)
}
