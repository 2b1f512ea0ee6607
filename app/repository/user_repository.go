package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stepio-app/stepio-server/app/models"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// EnsureByClerkID returns the user row for the given external id,
// creating it on first contact. Concurrent first requests race on the
// unique index; the loser's insert is a no-op and both read the same
// committed row.
func (r *userRepository) EnsureByClerkID(clerkID string) (*models.User, error) {
	user := models.User{ClerkID: clerkID}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "clerk_id"}},
		DoNothing: true,
	}).Create(&user).Error
	if err != nil {
		return nil, err
	}

	var stored models.User
	if err := r.db.Where("clerk_id = ?", clerkID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetByClerkID retrieves a user by their external id
func (r *userRepository) GetByClerkID(clerkID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("clerk_id = ?", clerkID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// TouchLastSeen refreshes the last-seen timestamp best-effort
func (r *userRepository) TouchLastSeen(clerkID string) error {
	now := time.Now()
	return r.db.Model(&models.User{}).
		Where("clerk_id = ?", clerkID).
		Updates(map[string]any{"last_seen_at": now}).Error
}
