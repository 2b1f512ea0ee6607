package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// User mirrors the identity provider's subject for local references.
// Identity itself (tokens, credentials) stays with the provider; this
// row only exists so billing and tracker records have a stable owner.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ClerkID     string         `gorm:"uniqueIndex;type:varchar(64)" json:"-" validate:"required"`
	Email       string         `gorm:"type:varchar(200)" json:"email" validate:"omitempty,email,max=200"`
	DisplayName string         `gorm:"type:varchar(150)" json:"display_name" validate:"max=150"`
	LastSeenAt  *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}
