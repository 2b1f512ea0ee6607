package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/stepio-app/stepio-server/app/models"
)

// milestoneRepository implements the MilestoneRepository interface
type milestoneRepository struct {
	db *gorm.DB
}

// NewMilestoneRepository creates a new milestone repository instance
func NewMilestoneRepository(db *gorm.DB) MilestoneRepository {
	return &milestoneRepository{db: db}
}

// Create creates a new milestone
func (r *milestoneRepository) Create(ms *models.Milestone) error {
	return r.db.Create(ms).Error
}

// GetByUUID retrieves one milestone, scoped to its owner
func (r *milestoneRepository) GetByUUID(clerkID, uuid string) (*models.Milestone, error) {
	var ms models.Milestone
	err := r.db.Where("clerk_id = ? AND uuid = ?", clerkID, uuid).First(&ms).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ms, nil
}

// ListByUser returns all milestones for a caregiver, most recent first
func (r *milestoneRepository) ListByUser(clerkID string) ([]models.Milestone, error) {
	var list []models.Milestone
	err := r.db.Where("clerk_id = ?", clerkID).Order("achieved_on DESC").Find(&list).Error
	return list, err
}

// ListByUserBetween returns milestones achieved inside [from, to)
func (r *milestoneRepository) ListByUserBetween(clerkID string, from, to time.Time) ([]models.Milestone, error) {
	var list []models.Milestone
	err := r.db.Where("clerk_id = ? AND achieved_on >= ? AND achieved_on < ?", clerkID, from, to).
		Order("achieved_on DESC").Find(&list).Error
	return list, err
}

// Update updates an existing milestone
func (r *milestoneRepository) Update(ms *models.Milestone) error {
	return r.db.Save(ms).Error
}

// Delete soft-deletes a milestone, scoped to its owner
func (r *milestoneRepository) Delete(clerkID, uuid string) error {
	return r.db.Where("clerk_id = ? AND uuid = ?", clerkID, uuid).Delete(&models.Milestone{}).Error
}
