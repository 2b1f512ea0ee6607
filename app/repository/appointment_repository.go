package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/stepio-app/stepio-server/app/models"
)

// appointmentRepository implements the AppointmentRepository interface
type appointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository creates a new appointment repository instance
func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

// Create creates a new appointment
func (r *appointmentRepository) Create(appt *models.Appointment) error {
	return r.db.Create(appt).Error
}

// GetByUUID retrieves one appointment, scoped to its owner
func (r *appointmentRepository) GetByUUID(clerkID, uuid string) (*models.Appointment, error) {
	var appt models.Appointment
	err := r.db.Where("clerk_id = ? AND uuid = ?", clerkID, uuid).First(&appt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appt, nil
}

// ListByUser returns all appointments for a caregiver ordered by schedule
func (r *appointmentRepository) ListByUser(clerkID string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := r.db.Where("clerk_id = ?", clerkID).Order("scheduled_at ASC").Find(&appts).Error
	return appts, err
}

// ListByUserBetween returns appointments scheduled inside [from, to)
func (r *appointmentRepository) ListByUserBetween(clerkID string, from, to time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := r.db.Where("clerk_id = ? AND scheduled_at >= ? AND scheduled_at < ?", clerkID, from, to).
		Order("scheduled_at ASC").Find(&appts).Error
	return appts, err
}

// Update updates an existing appointment
func (r *appointmentRepository) Update(appt *models.Appointment) error {
	return r.db.Save(appt).Error
}

// Delete soft-deletes an appointment, scoped to its owner
func (r *appointmentRepository) Delete(clerkID, uuid string) error {
	return r.db.Where("clerk_id = ? AND uuid = ?", clerkID, uuid).Delete(&models.Appointment{}).Error
}
