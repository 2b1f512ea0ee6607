package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// ChildProfile holds the single tracked child per caregiver account.
type ChildProfile struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ClerkID    string         `gorm:"uniqueIndex;type:varchar(64);not null" json:"-"`
	Name       string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=1,max=150"`
	BirthDate  time.Time      `gorm:"type:date" json:"birth_date"`
	Conditions string         `gorm:"type:varchar(500);default:''" json:"conditions"` // comma-separated condition codes (TEA, T21, ...)
	Gender     string         `gorm:"type:varchar(20);default:''" json:"gender" validate:"omitempty,oneof=menina menino nao_informar"`
	PhotoURL   string         `gorm:"type:varchar(255);default:''" json:"photo_url" validate:"max=255"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *ChildProfile) Validate() error {
	v := validator.New()

	return v.Struct(c)
}
