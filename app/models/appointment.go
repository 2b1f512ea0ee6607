package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	AppointmentKindTherapy = "therapy"
	AppointmentKindDoctor  = "doctor"
	AppointmentKindSchool  = "school"
)

// Appointment covers therapies, doctor visits and school events.
type Appointment struct {
	ID           uint           `gorm:"primaryKey" json:"-"`
	UUID         string         `gorm:"uniqueIndex;type:varchar(36);not null" json:"id"`
	ClerkID      string         `gorm:"index;type:varchar(64);not null" json:"-"`
	Title        string         `gorm:"type:varchar(150);not null" json:"title" validate:"required,min=1,max=150"`
	Professional string         `gorm:"type:varchar(150);default:''" json:"professional" validate:"max=150"`
	ScheduledAt  time.Time      `gorm:"index;not null" json:"scheduled_at"`
	Kind         string         `gorm:"type:varchar(20);not null" json:"kind" validate:"required,oneof=therapy doctor school"`
	Notes        string         `gorm:"type:text" json:"notes" validate:"max=1000"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (a *Appointment) Validate() error {
	v := validator.New()

	return v.Struct(a)
}
