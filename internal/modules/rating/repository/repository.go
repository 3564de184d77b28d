package repository

import (
	"context"

	"github.com/edushare/edushare-backend/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Summary is the derived rating state handed back after a submission.
type Summary struct {
	Average   float64
	Count     int
	Breakdown [5]int
}

type RatingRepository interface {
	// Submit upserts the user's rating and recomputes the material's full
	// distribution from the rating rows in one transaction. created reports
	// whether this was the user's first rating of the material.
	Submit(ctx context.Context, materialID, userID uuid.UUID, stars int) (summary Summary, created bool, err error)
	FindUserRating(ctx context.Context, materialID, userID uuid.UUID) (*entity.MaterialRating, error)
}

type ratingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

func (r *ratingRepository) Submit(ctx context.Context, materialID, userID uuid.UUID, stars int) (Summary, bool, error) {
	var summary Summary
	var created bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []entity.MaterialRating
		if err := tx.Where("material_id = ? AND user_id = ?", materialID, userID).
			Limit(1).
			Find(&existing).Error; err != nil {
			return err
		}

		if len(existing) > 0 {
			// Re-rating replaces stars and timestamp in place, never appends.
			record := existing[0]
			record.Stars = stars
			if err := tx.Save(&record).Error; err != nil {
				return err
			}
		} else {
			record := entity.MaterialRating{
				MaterialID: materialID,
				UserID:     userID,
				Stars:      stars,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			created = true
		}

		// Recompute the whole distribution from the rating rows rather than
		// adjusting counters incrementally, so the summary can never drift.
		type row struct {
			Stars int
			Count int
		}
		var rows []row
		if err := tx.Model(&entity.MaterialRating{}).
			Select("stars, count(*) as count").
			Where("material_id = ?", materialID).
			Group("stars").
			Scan(&rows).Error; err != nil {
			return err
		}

		total := 0
		weighted := 0
		for _, rw := range rows {
			if rw.Stars >= 1 && rw.Stars <= 5 {
				summary.Breakdown[rw.Stars-1] = rw.Count
				total += rw.Count
				weighted += rw.Stars * rw.Count
			}
		}
		summary.Count = total
		if total > 0 {
			summary.Average = float64(weighted) / float64(total)
		}

		material := entity.Material{ID: materialID}
		material.RatingAverage = summary.Average
		material.RatingCount = summary.Count
		material.SetBreakdown(summary.Breakdown)

		return tx.Model(&entity.Material{}).
			Where("id = ?", materialID).
			Updates(map[string]any{
				"rating_average":   material.RatingAverage,
				"rating_count":     material.RatingCount,
				"rating_breakdown": material.RatingBreakdown,
			}).Error
	})

	return summary, created, err
}

func (r *ratingRepository) FindUserRating(ctx context.Context, materialID, userID uuid.UUID) (*entity.MaterialRating, error) {
	var ratings []entity.MaterialRating
	err := r.db.WithContext(ctx).
		Where("material_id = ? AND user_id = ?", materialID, userID).
		Limit(1).
		Find(&ratings).Error
	if err != nil {
		return nil, err
	}
	if len(ratings) == 0 {
		return nil, nil
	}
	return &ratings[0], nil
}
