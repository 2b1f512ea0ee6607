package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stepio-app/stepio-server/app/models"
)

// dailyLogRepository implements the DailyLogRepository interface
type dailyLogRepository struct {
	db *gorm.DB
}

// NewDailyLogRepository creates a new daily log repository instance
func NewDailyLogRepository(db *gorm.DB) DailyLogRepository {
	return &dailyLogRepository{db: db}
}

// UpsertForDay writes the entry for its (user, day) slot. Saving the
// same day again overwrites mood, food, sleep and crisis in place.
func (r *dailyLogRepository) UpsertForDay(entry *models.DailyLogEntry) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "clerk_id"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"mood", "food", "sleep", "crisis", "updated_at",
		}),
	}).Create(entry).Error
}

// GetByUserDay retrieves the entry for one calendar day, nil when absent
func (r *dailyLogRepository) GetByUserDay(clerkID, day string) (*models.DailyLogEntry, error) {
	var entry models.DailyLogEntry
	err := r.db.Where("clerk_id = ? AND day = ?", clerkID, day).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListByUser returns all entries for a caregiver, newest day first
func (r *dailyLogRepository) ListByUser(clerkID string) ([]models.DailyLogEntry, error) {
	var list []models.DailyLogEntry
	err := r.db.Where("clerk_id = ?", clerkID).Order("day DESC").Find(&list).Error
	return list, err
}

// ListByUserDayRange returns entries with day inside [fromDay, toDay].
// Day strings are YYYY-MM-DD so lexical order matches calendar order.
func (r *dailyLogRepository) ListByUserDayRange(clerkID, fromDay, toDay string) ([]models.DailyLogEntry, error) {
	var list []models.DailyLogEntry
	err := r.db.Where("clerk_id = ? AND day >= ? AND day <= ?", clerkID, fromDay, toDay).
		Order("day DESC").Find(&list).Error
	return list, err
}

// Delete soft-deletes one entry, scoped to its owner
func (r *dailyLogRepository) Delete(clerkID, uuid string) error {
	return r.db.Where("clerk_id = ? AND uuid = ?", clerkID, uuid).Delete(&models.DailyLogEntry{}).Error
}
