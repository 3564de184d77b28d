package repository

import (
	"context"

	"github.com/edushare/edushare-backend/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeedItem is one row of the admin moderation feed: the report joined with
// its material and, for comment reports, an excerpt of the offending text.
type FeedItem struct {
	Report         entity.Report `json:"report"`
	MaterialTitle  string        `json:"material_title"`
	CommentExcerpt string        `json:"comment_excerpt,omitempty"`
}

type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	// Exists reports whether reporter already filed against this exact
	// target (material when commentID is nil, that comment otherwise).
	Exists(ctx context.Context, materialID uuid.UUID, commentID *uuid.UUID, reporterID uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Feed lists all reports, both scopes merged, newest first.
	Feed(ctx context.Context, offset, limit int) ([]FeedItem, int64, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *entity.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	var report entity.Report
	if err := r.db.WithContext(ctx).
		Preload("Reporter").
		Where("id = ?", id).
		First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) Exists(ctx context.Context, materialID uuid.UUID, commentID *uuid.UUID, reporterID uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&entity.Report{}).
		Where("material_id = ? AND reporter_id = ?", materialID, reporterID)

	if commentID == nil {
		query = query.Where("comment_id IS NULL")
	} else {
		query = query.Where("comment_id = ?", *commentID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *reportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Report{}, "id = ?", id).Error
}

const excerptLen = 100

func (r *reportRepository) Feed(ctx context.Context, offset, limit int) ([]FeedItem, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entity.Report{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []entity.Report
	if err := r.db.WithContext(ctx).
		Preload("Reporter").
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&reports).Error; err != nil {
		return nil, 0, err
	}

	items := make([]FeedItem, 0, len(reports))
	for _, rep := range reports {
		item := FeedItem{Report: rep}

		var titles []string
		if err := r.db.WithContext(ctx).
			Model(&entity.Material{}).
			Where("id = ?", rep.MaterialID).
			Pluck("title", &titles).Error; err != nil {
			return nil, 0, err
		}
		if len(titles) > 0 {
			item.MaterialTitle = titles[0]
		}

		if rep.CommentID != nil {
			var texts []string
			if err := r.db.WithContext(ctx).
				Model(&entity.Comment{}).
				Where("id = ?", *rep.CommentID).
				Pluck("text", &texts).Error; err != nil {
				return nil, 0, err
			}
			if len(texts) > 0 {
				item.CommentExcerpt = excerpt(texts[0])
			}
		}

		items = append(items, item)
	}

	return items, total, nil
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLen {
		return text
	}
	return string(runes[:excerptLen])
}
