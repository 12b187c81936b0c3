package repository

import (
	"context"

	"github.com/yukikurage/agency-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBillingRepository is a GORM implementation of BillingRepository
type GormBillingRepository struct {
	db *gorm.DB
}

// NewBillingRepository creates a new BillingRepository
func NewBillingRepository(db *gorm.DB) BillingRepository {
	return &GormBillingRepository{db: db}
}

// FindSubscription returns the organization's subscription, whatever its status
func (r *GormBillingRepository) FindSubscription(ctx context.Context, organizationID uint64) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("organization_id = ?", organizationID).
		First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// SaveSubscription inserts or updates the organization's single subscription
func (r *GormBillingRepository) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"plan_id", "status", "external_id", "current_period_start", "current_period_end", "updated_at"}),
		}).
		Create(sub).Error
}

func (r *GormBillingRepository) FindPlanByID(ctx context.Context, id uint64) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *GormBillingRepository) ListPlans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	if err := r.db.WithContext(ctx).Order("max_users ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}
