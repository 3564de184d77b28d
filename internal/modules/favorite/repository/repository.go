package repository

import (
	"context"

	"github.com/edushare/edushare-backend/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FavoriteRepository interface {
	// Toggle adds the favorite if absent, removes it if present. Returns
	// whether the material is favorited after the call.
	Toggle(ctx context.Context, userID, materialID uuid.UUID) (favorited bool, err error)
	Exists(ctx context.Context, userID, materialID uuid.UUID) (bool, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*entity.Favorite, int64, error)
	// UserIDsByMaterial returns ids of everyone who favorited the material.
	// Input to comment-notification fan-out.
	UserIDsByMaterial(ctx context.Context, materialID uuid.UUID) ([]uuid.UUID, error)
}

type favoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) Toggle(ctx context.Context, userID, materialID uuid.UUID) (bool, error) {
	var favorited bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []entity.Favorite
		if err := tx.Where("user_id = ? AND material_id = ?", userID, materialID).
			Limit(1).
			Find(&existing).Error; err != nil {
			return err
		}

		if len(existing) > 0 {
			return tx.Delete(&existing[0]).Error
		}

		favorited = true
		return tx.Create(&entity.Favorite{
			UserID:     userID,
			MaterialID: materialID,
		}).Error
	})

	return favorited, err
}

func (r *favoriteRepository) Exists(ctx context.Context, userID, materialID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Favorite{}).
		Where("user_id = ? AND material_id = ?", userID, materialID).
		Count(&count).Error
	return count > 0, err
}

func (r *favoriteRepository) FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*entity.Favorite, int64, error) {
	var favorites []*entity.Favorite
	var total int64

	query := r.db.WithContext(ctx).Where("user_id = ?", userID)

	if err := query.Model(&entity.Favorite{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Material").
		Preload("Material.User").
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&favorites).Error; err != nil {
		return nil, 0, err
	}

	return favorites, total, nil
}

func (r *favoriteRepository) UserIDsByMaterial(ctx context.Context, materialID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&entity.Favorite{}).
		Where("material_id = ?", materialID).
		Pluck("user_id", &ids).Error
	return ids, err
}
