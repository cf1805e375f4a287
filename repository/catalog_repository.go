package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nathangtg/coffee-single-tenant-sub000/models"
)

// CatalogRepository is the read-only view of the menu.
type CatalogRepository interface {
	GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	GetOption(ctx context.Context, id uuid.UUID) (*models.ItemOption, error)
	ListMenu(ctx context.Context) ([]models.Item, error)
}

type GormCatalogRepository struct {
	db *gorm.DB
}

func NewGormCatalogRepository(db *gorm.DB) CatalogRepository {
	return &GormCatalogRepository{db: db}
}

func (r *GormCatalogRepository) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *GormCatalogRepository) GetOption(ctx context.Context, id uuid.UUID) (*models.ItemOption, error) {
	var opt models.ItemOption
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&opt).Error; err != nil {
		return nil, translate(err)
	}
	return &opt, nil
}

// ListMenu returns available items with their options, ordered by name.
func (r *GormCatalogRepository) ListMenu(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).
		Preload("Options").
		Where("is_available = ?", true).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
