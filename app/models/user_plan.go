package models

import "time"

// Plan tier and status values. Tier and status are written together by
// the reconciler, never independently.
const (
	PlanTierFree = "free"
	PlanTierPro  = "pro"

	PlanStatusActive   = "active"
	PlanStatusInactive = "inactive"
)

// UserPlan is the canonical per-user plan record, the single source of
// truth consumed by the entitlement gate. Absence of a row means
// free/inactive; a pro tier is only ever written from an observed,
// unexpired entitlement.
type UserPlan struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ClerkID        string     `gorm:"uniqueIndex;type:varchar(64);not null" json:"-"`
	Tier           string     `gorm:"type:varchar(20);not null;default:'free'" json:"tier"`
	Status         string     `gorm:"type:varchar(20);not null;default:'inactive'" json:"status"`
	RenewalDate    *time.Time `gorm:"type:timestamp;default:null" json:"renewal_date,omitempty"`
	ProductID      string     `gorm:"type:varchar(191);default:''" json:"product_id,omitempty"`
	SubscriptionID string     `gorm:"type:varchar(191);default:''" json:"-"`
	SyncedAt       time.Time  `gorm:"type:timestamp" json:"synced_at"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
