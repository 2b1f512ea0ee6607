package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Milestone records a developmental milestone for the tracked child.
type Milestone struct {
	ID          uint           `gorm:"primaryKey" json:"-"`
	UUID        string         `gorm:"uniqueIndex;type:varchar(36);not null" json:"id"`
	ClerkID     string         `gorm:"index;type:varchar(64);not null" json:"-"`
	Title       string         `gorm:"type:varchar(150);not null" json:"title" validate:"required,min=1,max=150"`
	Description string         `gorm:"type:text" json:"description" validate:"max=1000"`
	AchievedOn  time.Time      `gorm:"type:date;index" json:"achieved_on"`
	PhotoURL    string         `gorm:"type:varchar(255);default:''" json:"photo_url" validate:"max=255"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (m *Milestone) Validate() error {
	v := validator.New()

	return v.Struct(m)
}
