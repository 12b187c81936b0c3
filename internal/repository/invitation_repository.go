package repository

import (
	"context"
	"time"

	"github.com/yukikurage/agency-api/internal/database"
	"github.com/yukikurage/agency-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvitationRepository is a GORM implementation of InvitationRepository
type GormInvitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new InvitationRepository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &GormInvitationRepository{db: db}
}

func (r *GormInvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(inv).Error
}

func (r *GormInvitationRepository) FindByID(ctx context.Context, id uint64) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.db.WithContext(ctx).Preload("Role").First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *GormInvitationRepository) FindByToken(ctx context.Context, token string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Preload("Organization").
		Where("token = ?", token).
		First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *GormInvitationRepository) FindPending(ctx context.Context, organizationID uint64, email string, now time.Time) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.db.WithContext(ctx).
		Scopes(database.PendingInvitations(now)).
		Where("organization_id = ? AND email = ?", organizationID, email).
		First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *GormInvitationRepository) ListPendingByEmail(ctx context.Context, email string, now time.Time) ([]models.Invitation, error) {
	var invs []models.Invitation
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Scopes(database.PendingInvitations(now)).
		Where("email = ?", email).
		Order("id ASC").
		Find(&invs).Error; err != nil {
		return nil, err
	}
	return invs, nil
}

func (r *GormInvitationRepository) ListPendingByOrganization(ctx context.Context, organizationID uint64, now time.Time) ([]models.Invitation, error) {
	var invs []models.Invitation
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Scopes(database.PendingInvitations(now)).
		Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Find(&invs).Error; err != nil {
		return nil, err
	}
	return invs, nil
}

func (r *GormInvitationRepository) CountPending(ctx context.Context, organizationID uint64, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Scopes(database.PendingInvitations(now)).
		Where("organization_id = ?", organizationID).
		Count(&count).Error
	return count, err
}

func (r *GormInvitationRepository) UpdateStatus(ctx context.Context, id uint64, status models.InvitationStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Invitation{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormInvitationRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Invitation{}, id).Error
}

func (r *GormInvitationRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Scopes(database.StaleInvitations(now)).
		Update("status", models.InvitationExpired)
	return result.RowsAffected, result.Error
}
