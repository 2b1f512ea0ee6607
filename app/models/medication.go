package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Medication forms and dose frequencies as used by the mobile client.
const (
	MedicationFormSyrup    = "xarope"
	MedicationFormTablet   = "comprimido"
	MedicationFormDrops    = "gotas"
	MedicationFormOintment = "pomada"

	FrequencyDaily    = "diario"
	FrequencyEvery6h  = "6h"
	FrequencyEvery8h  = "8h"
	FrequencyEvery12h = "12h"
	FrequencyOnDemand = "sob_demanda"
)

type Medication struct {
	ID         uint           `gorm:"primaryKey" json:"-"`
	UUID       string         `gorm:"uniqueIndex;type:varchar(36);not null" json:"id"`
	ClerkID    string         `gorm:"index;type:varchar(64);not null" json:"-"`
	Name       string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=1,max=150"`
	Form       string         `gorm:"type:varchar(20);not null" json:"form" validate:"required,oneof=xarope comprimido gotas pomada"`
	Dosage     string         `gorm:"type:varchar(100);default:''" json:"dosage" validate:"max=100"`
	Frequency  string         `gorm:"type:varchar(20);not null" json:"frequency" validate:"required,oneof=diario 6h 8h 12h sob_demanda"`
	StartTime  string         `gorm:"type:varchar(5);default:''" json:"start_time" validate:"omitempty,len=5"` // HH:mm
	ExtraTimes string         `gorm:"type:varchar(200);default:''" json:"extra_times"`                         // comma-separated HH:mm values
	Notes      string         `gorm:"type:text" json:"notes" validate:"max=1000"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (m *Medication) Validate() error {
	v := validator.New()

	return v.Struct(m)
}
