package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/stepio-app/stepio-server/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	EnsureByClerkID(clerkID string) (*models.User, error)
	GetByClerkID(clerkID string) (*models.User, error)
	Update(user *models.User) error
	TouchLastSeen(clerkID string) error
}

// ChildProfileRepository manages the single child profile per caregiver
type ChildProfileRepository interface {
	GetByUser(clerkID string) (*models.ChildProfile, error)
	Upsert(profile *models.ChildProfile) error
	Delete(clerkID string) error
}

// MedicationRepository defines medication CRUD scoped to one caregiver
type MedicationRepository interface {
	Create(med *models.Medication) error
	GetByUUID(clerkID, uuid string) (*models.Medication, error)
	ListByUser(clerkID string) ([]models.Medication, error)
	Update(med *models.Medication) error
	Delete(clerkID, uuid string) error
}

// AppointmentRepository defines appointment CRUD scoped to one caregiver
type AppointmentRepository interface {
	Create(appt *models.Appointment) error
	GetByUUID(clerkID, uuid string) (*models.Appointment, error)
	ListByUser(clerkID string) ([]models.Appointment, error)
	ListByUserBetween(clerkID string, from, to time.Time) ([]models.Appointment, error)
	Update(appt *models.Appointment) error
	Delete(clerkID, uuid string) error
}

// MilestoneRepository defines milestone CRUD scoped to one caregiver
type MilestoneRepository interface {
	Create(ms *models.Milestone) error
	GetByUUID(clerkID, uuid string) (*models.Milestone, error)
	ListByUser(clerkID string) ([]models.Milestone, error)
	ListByUserBetween(clerkID string, from, to time.Time) ([]models.Milestone, error)
	Update(ms *models.Milestone) error
	Delete(clerkID, uuid string) error
}

// DailyLogRepository manages the one-entry-per-day log
type DailyLogRepository interface {
	UpsertForDay(entry *models.DailyLogEntry) error
	GetByUserDay(clerkID, day string) (*models.DailyLogEntry, error)
	ListByUser(clerkID string) ([]models.DailyLogEntry, error)
	ListByUserDayRange(clerkID, fromDay, toDay string) ([]models.DailyLogEntry, error)
	Delete(clerkID, uuid string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	ChildProfile ChildProfileRepository
	Medication   MedicationRepository
	Appointment  AppointmentRepository
	Milestone    MilestoneRepository
	DailyLog     DailyLogRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		ChildProfile: NewChildProfileRepository(db),
		Medication:   NewMedicationRepository(db),
		Appointment:  NewAppointmentRepository(db),
		Milestone:    NewMilestoneRepository(db),
		DailyLog:     NewDailyLogRepository(db),
	}
}
