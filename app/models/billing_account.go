package models

import "time"

// Billing provider constants used across billing-related models.
const (
	BillingProviderStripe     = "stripe"
	BillingProviderRevenueCat = "revenuecat"
)

// BillingAccount links an internal user to the payment processor's
// customer identifier. The row is created at most once per user
// (unique index + create-if-absent) and is never overwritten with a
// different customer id afterwards. The customer id is intentionally
// NOT unique: a shared customer may legitimately map to several users.
type BillingAccount struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ClerkID          string    `gorm:"uniqueIndex;type:varchar(64);not null" json:"-"`
	StripeCustomerID string    `gorm:"type:varchar(191);not null;index" json:"stripe_customer_id"`
	Email            string    `gorm:"type:varchar(200);default:''" json:"email"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
