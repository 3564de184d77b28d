package repository

import (
	"context"

	"github.com/edushare/edushare-backend/internal/entity"
	"github.com/edushare/edushare-backend/pkg/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MaterialRepository interface {
	Create(ctx context.Context, material *entity.Material) error
	// FindByID returns the material regardless of flags; callers that serve
	// read paths should use FindActiveByID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Material, error)
	// FindActiveByID returns only active, approved materials.
	FindActiveByID(ctx context.Context, id uuid.UUID) (*entity.Material, error)
	FindAll(ctx context.Context, filter dto.MaterialFilter) ([]*entity.Material, int64, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*entity.Material, int64, error)
	// ActiveAverages returns rating_average for the user's active approved
	// materials with at least one rating. Input to the reputation mean.
	ActiveAverages(ctx context.Context, userID uuid.UUID) ([]float64, error)
	CountActiveByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	Update(ctx context.Context, material *entity.Material) error
	UpdateRatingSummary(ctx context.Context, tx *gorm.DB, material *entity.Material) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
	IncrementDownloads(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type materialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &materialRepository{db: db}
}

func (r *materialRepository) Create(ctx context.Context, material *entity.Material) error {
	return r.db.WithContext(ctx).Create(material).Error
}

func (r *materialRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Material, error) {
	var material entity.Material
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ?", id).
		First(&material).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *materialRepository) FindActiveByID(ctx context.Context, id uuid.UUID) (*entity.Material, error) {
	var material entity.Material
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc")
		}).
		Preload("Comments.User").
		Preload("Comments.Reactions").
		Where("id = ? AND is_active = ? AND is_approved = ?", id, true, true).
		First(&material).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *materialRepository) FindAll(ctx context.Context, filter dto.MaterialFilter) ([]*entity.Material, int64, error) {
	var materials []*entity.Material
	var total int64

	query := r.db.WithContext(ctx).
		Preload("User").
		Where("is_active = ? AND is_approved = ?", true, true)

	if filter.Subject != "" {
		query = query.Where("subject = ?", filter.Subject)
	}
	if filter.MaterialType != "" {
		query = query.Where("material_type = ?", filter.MaterialType)
	}
	if filter.Year != "" {
		query = query.Where("year = ?", filter.Year)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	if err := query.Model(&entity.Material{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.SortBy {
	case "popular":
		query = query.Order("views DESC").Order("created_at DESC")
	case "top_rated":
		query = query.Order("rating_average DESC").Order("rating_count DESC")
	default:
		query = query.Order("created_at DESC")
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Offset(offset).Limit(filter.Limit).Find(&materials).Error; err != nil {
		return nil, 0, err
	}

	return materials, total, nil
}

func (r *materialRepository) FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*entity.Material, int64, error) {
	var materials []*entity.Material
	var total int64

	query := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ? AND is_active = ?", userID, true)

	if err := query.Model(&entity.Material{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&materials).Error; err != nil {
		return nil, 0, err
	}

	return materials, total, nil
}

func (r *materialRepository) ActiveAverages(ctx context.Context, userID uuid.UUID) ([]float64, error) {
	var averages []float64
	err := r.db.WithContext(ctx).
		Model(&entity.Material{}).
		Where("user_id = ? AND is_active = ? AND is_approved = ? AND rating_count > 0", userID, true, true).
		Pluck("rating_average", &averages).Error
	return averages, err
}

func (r *materialRepository) CountActiveByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Material{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	return count, err
}

func (r *materialRepository) Update(ctx context.Context, material *entity.Material) error {
	return r.db.WithContext(ctx).Save(material).Error
}

// UpdateRatingSummary writes only the derived rating columns, inside the
// caller's transaction when one is given.
func (r *materialRepository) UpdateRatingSummary(ctx context.Context, tx *gorm.DB, material *entity.Material) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).
		Model(&entity.Material{}).
		Where("id = ?", material.ID).
		Updates(map[string]any{
			"rating_average":   material.RatingAverage,
			"rating_count":     material.RatingCount,
			"rating_breakdown": material.RatingBreakdown,
		}).Error
}

func (r *materialRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entity.Material{}).
		Where("id = ?", id).
		Update("views", gorm.Expr("views + 1")).Error
}

func (r *materialRepository) IncrementDownloads(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entity.Material{}).
		Where("id = ?", id).
		Update("downloads", gorm.Expr("downloads + 1")).Error
}

// Delete hard-deletes the material and every child record it owns. Children
// are removed explicitly inside one transaction rather than leaning on FK
// cascade, so behavior is identical across Postgres and the sqlite test DB.
func (r *materialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var commentIDs []uuid.UUID
		if err := tx.Model(&entity.Comment{}).Where("material_id = ?", id).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("comment_id IN ?", commentIDs).Delete(&entity.CommentReaction{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("material_id = ?", id).Delete(&entity.Report{}).Error; err != nil {
			return err
		}
		if err := tx.Where("material_id = ?", id).Delete(&entity.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("material_id = ?", id).Delete(&entity.MaterialRating{}).Error; err != nil {
			return err
		}
		if err := tx.Where("material_id = ?", id).Delete(&entity.Favorite{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Material{}, "id = ?", id).Error
	})
}
