package repository

import (
	"context"

	"github.com/yukikurage/agency-api/internal/database"
	"github.com/yukikurage/agency-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrganizationRepository is a GORM implementation of OrganizationRepository
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// Create creates a new organization
func (r *GormOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

// FindByID finds an organization by ID
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uint64) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// LockByID reads the organization row FOR UPDATE. Concurrent seat admissions
// for the same organization queue on this lock.
func (r *GormOrganizationRepository) LockByID(ctx context.Context, id uint64) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).
		Scopes(database.ForUpdate).
		First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// Update updates an organization
func (r *GormOrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(org).Error
}

// Delete deletes an organization and all related data in a transaction
func (r *GormOrganizationRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clientIDs := tx.Unscoped().Model(&models.Client{}).Select("id").Where("organization_id = ?", id)
		projectIDs := tx.Unscoped().Model(&models.Project{}).Select("id").Where("client_id IN (?)", clientIDs)

		// Delete tenant content, leaves first
		if err := tx.Where("project_id IN (?)", projectIDs).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id IN (?)", clientIDs).Delete(&models.Project{}).Error; err != nil {
			return err
		}
		if err := tx.Where("organization_id = ?", id).Delete(&models.Client{}).Error; err != nil {
			return err
		}

		// Delete tenancy and billing rows
		for _, model := range []interface{}{
			&models.Invitation{},
			&models.Membership{},
			&models.Subscription{},
			&models.AuditLog{},
		} {
			if err := tx.Where("organization_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&models.Organization{}, id).Error
	})
}

// AddMember adds a member to an organization
func (r *GormOrganizationRepository) AddMember(ctx context.Context, member *models.Membership) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(member).Error
}

// RemoveMember removes a member from an organization
func (r *GormOrganizationRepository) RemoveMember(ctx context.Context, organizationID, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Delete(&models.Membership{}).Error
}

// FindMember finds a specific membership together with its role
func (r *GormOrganizationRepository) FindMember(ctx context.Context, organizationID, userID uint64) (*models.Membership, error) {
	var member models.Membership
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateMemberRole changes a member's role
func (r *GormOrganizationRepository) UpdateMemberRole(ctx context.Context, organizationID, userID, roleID uint64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Update("role_id", roleID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListMembershipsByUserID lists all organizations a user is a member of
func (r *GormOrganizationRepository) ListMembershipsByUserID(ctx context.Context, userID uint64) ([]models.Membership, error) {
	var memberships []models.Membership
	if err := r.db.WithContext(ctx).
		Preload("Organization").
		Preload("Role").
		Where("user_id = ?", userID).
		Order("joined_at ASC").
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListMembers lists all members of an organization
func (r *GormOrganizationRepository) ListMembers(ctx context.Context, organizationID uint64) ([]models.Membership, error) {
	var members []models.Membership
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Role").
		Where("organization_id = ?", organizationID).
		Order("joined_at ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// CountMembers counts the memberships of an organization
func (r *GormOrganizationRepository) CountMembers(ctx context.Context, organizationID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("organization_id = ?", organizationID).
		Count(&count).Error
	return count, err
}
