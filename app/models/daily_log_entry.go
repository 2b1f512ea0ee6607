package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// DailyLogEntry is the per-day mood/behavior record. One entry per user
// and calendar day; saving the same day again overwrites the fields.
type DailyLogEntry struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	UUID      string         `gorm:"uniqueIndex;type:varchar(36);not null" json:"id"`
	ClerkID   string         `gorm:"type:varchar(64);not null;index:ux_daily_logs_user_day,unique,priority:1" json:"-"`
	Day       string         `gorm:"type:varchar(10);not null;index:ux_daily_logs_user_day,unique,priority:2" json:"date"` // YYYY-MM-DD
	Mood      string         `gorm:"type:varchar(50);default:''" json:"mood" validate:"max=50"`
	Food      string         `gorm:"type:varchar(200);default:''" json:"food" validate:"max=200"`
	Sleep     string         `gorm:"type:varchar(200);default:''" json:"sleep" validate:"max=200"`
	Crisis    string         `gorm:"type:varchar(500);default:''" json:"crisis" validate:"max=500"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (d *DailyLogEntry) Validate() error {
	v := validator.New()

	return v.Struct(d)
}
