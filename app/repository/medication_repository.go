package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/stepio-app/stepio-server/app/models"
)

// medicationRepository implements the MedicationRepository interface
type medicationRepository struct {
	db *gorm.DB
}

// NewMedicationRepository creates a new medication repository instance
func NewMedicationRepository(db *gorm.DB) MedicationRepository {
	return &medicationRepository{db: db}
}

// Create creates a new medication
func (r *medicationRepository) Create(med *models.Medication) error {
	return r.db.Create(med).Error
}

// GetByUUID retrieves one medication, scoped to its owner
func (r *medicationRepository) GetByUUID(clerkID, uuid string) (*models.Medication, error) {
	var med models.Medication
	err := r.db.Where("clerk_id = ? AND uuid = ?", clerkID, uuid).First(&med).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &med, nil
}

// ListByUser returns all medications for a caregiver, newest first
func (r *medicationRepository) ListByUser(clerkID string) ([]models.Medication, error) {
	var meds []models.Medication
	err := r.db.Where("clerk_id = ?", clerkID).Order("created_at DESC").Find(&meds).Error
	return meds, err
}

// Update updates an existing medication
func (r *medicationRepository) Update(med *models.Medication) error {
	return r.db.Save(med).Error
}

// Delete soft-deletes a medication, scoped to its owner
func (r *medicationRepository) Delete(clerkID, uuid string) error {
	return r.db.Where("clerk_id = ? AND uuid = ?", clerkID, uuid).Delete(&models.Medication{}).Error
}
