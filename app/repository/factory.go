package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetChildProfileRepository returns the child profile repository instance
func (f *Factory) GetChildProfileRepository() ChildProfileRepository {
	return f.GetRepositories().ChildProfile
}

// GetMedicationRepository returns the medication repository instance
func (f *Factory) GetMedicationRepository() MedicationRepository {
	return f.GetRepositories().Medication
}

// GetAppointmentRepository returns the appointment repository instance
func (f *Factory) GetAppointmentRepository() AppointmentRepository {
	return f.GetRepositories().Appointment
}

// GetMilestoneRepository returns the milestone repository instance
func (f *Factory) GetMilestoneRepository() MilestoneRepository {
	return f.GetRepositories().Milestone
}

// GetDailyLogRepository returns the daily log repository instance
func (f *Factory) GetDailyLogRepository() DailyLogRepository {
	return f.GetRepositories().DailyLog
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
