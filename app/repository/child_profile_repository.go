package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stepio-app/stepio-server/app/models"
)

// childProfileRepository implements the ChildProfileRepository interface
type childProfileRepository struct {
	db *gorm.DB
}

// NewChildProfileRepository creates a new child profile repository instance
func NewChildProfileRepository(db *gorm.DB) ChildProfileRepository {
	return &childProfileRepository{db: db}
}

// GetByUser retrieves the child profile for a caregiver, nil when none exists
func (r *childProfileRepository) GetByUser(clerkID string) (*models.ChildProfile, error) {
	var profile models.ChildProfile
	err := r.db.Where("clerk_id = ?", clerkID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// Upsert writes the profile, replacing the existing one for the same caregiver
func (r *childProfileRepository) Upsert(profile *models.ChildProfile) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "clerk_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "birth_date", "conditions", "gender", "photo_url", "updated_at",
		}),
	}).Create(profile).Error
}

// Delete soft-deletes the caregiver's child profile
func (r *childProfileRepository) Delete(clerkID string) error {
	return r.db.Where("clerk_id = ?", clerkID).Delete(&models.ChildProfile{}).Error
}
