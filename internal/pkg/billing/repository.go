package billing

import (
	"errors"
	"time"

	"github.com/stepio-app/stepio-server/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing components.
type Repository interface {
	GetBillingAccountByUser(clerkID string) (*models.BillingAccount, error)
	// CreateBillingAccountIfAbsent inserts the link unless one already
	// exists for the user. It reports whether this call created the row
	// and always returns the stored (winning) record.
	CreateBillingAccountIfAbsent(account *models.BillingAccount) (bool, *models.BillingAccount, error)
	ListBillingAccountsByCustomer(stripeCustomerID string) ([]models.BillingAccount, error)

	GetUserPlan(clerkID string) (*models.UserPlan, error)
	// UpsertUserPlan merge-writes the plan record keyed by user. Tier,
	// status and synced_at are always written together; renewal date,
	// product id and subscription id only when set on the value.
	UpsertUserPlan(plan *models.UserPlan) error

	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
	RecordWebhookFailure(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetBillingAccountByUser(clerkID string) (*models.BillingAccount, error) {
	var account models.BillingAccount
	err := r.db.Where("clerk_id = ?", clerkID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *gormRepository) CreateBillingAccountIfAbsent(account *models.BillingAccount) (bool, *models.BillingAccount, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "clerk_id"}},
		DoNothing: true,
	}).Create(account)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingAccount
	if err := r.db.Where("clerk_id = ?", account.ClerkID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) ListBillingAccountsByCustomer(stripeCustomerID string) ([]models.BillingAccount, error) {
	var accounts []models.BillingAccount
	err := r.db.Where("stripe_customer_id = ?", stripeCustomerID).Find(&accounts).Error
	return accounts, err
}

func (r *gormRepository) GetUserPlan(clerkID string) (*models.UserPlan, error) {
	var plan models.UserPlan
	err := r.db.Where("clerk_id = ?", clerkID).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) UpsertUserPlan(plan *models.UserPlan) error {
	cols := []string{"tier", "status", "synced_at", "updated_at"}
	if plan.RenewalDate != nil {
		cols = append(cols, "renewal_date")
	}
	if plan.ProductID != "" {
		cols = append(cols, "product_id")
	}
	if plan.SubscriptionID != "" {
		cols = append(cols, "subscription_id")
	}

	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "clerk_id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}).Create(plan).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("clerk_id = ?", plan.ClerkID).First(plan).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

// RecordWebhookFailure stores the processing error without claiming
// the event: ProcessedAt stays null so a redelivery may retry it.
func (r *gormRepository) RecordWebhookFailure(id uint, processingError string) error {
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).
		Update("processing_error", processingError).Error
}
