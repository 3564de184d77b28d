package repository

import (
	"context"

	"github.com/edushare/edushare-backend/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CatalogRepository interface {
	Create(ctx context.Context, item *entity.CatalogItem) error
	FindByKind(ctx context.Context, kind string) ([]entity.CatalogItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) Create(ctx context.Context, item *entity.CatalogItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *catalogRepository) FindByKind(ctx context.Context, kind string) ([]entity.CatalogItem, error) {
	var items []entity.CatalogItem
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("value asc").
		Find(&items).Error
	return items, err
}

func (r *catalogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.CatalogItem{}, "id = ?", id).Error
}
