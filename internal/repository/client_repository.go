package repository

import (
	"context"

	"github.com/yukikurage/agency-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormClientRepository is a GORM implementation of ClientRepository
type GormClientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &GormClientRepository{db: db}
}

func (r *GormClientRepository) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(client).Error
}

func (r *GormClientRepository) FindByID(ctx context.Context, id uint64) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *GormClientRepository) ListByOrganization(ctx context.Context, organizationID uint64) ([]models.Client, error) {
	var clients []models.Client
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("name ASC").
		Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *GormClientRepository) OrganizationID(ctx context.Context, clientID uint64) (uint64, error) {
	var ids []uint64
	if err := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("clients.id = ?", clientID).
		Limit(1).
		Pluck("clients.organization_id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return ids[0], nil
}
