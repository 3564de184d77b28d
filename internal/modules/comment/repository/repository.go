package repository

import (
	"context"

	"github.com/edushare/edushare-backend/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *entity.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error)
	FindByMaterialID(ctx context.Context, materialID uuid.UUID) ([]*entity.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ToggleReaction flips the user's like/dislike on a comment. Same kind
	// twice undoes it; the opposite kind replaces it. Returns the kinds
	// before and after ("" for none).
	ToggleReaction(ctx context.Context, commentID, userID uuid.UUID, kind string) (oldKind, newKind string, err error)
	ReactionCounts(ctx context.Context, commentID uuid.UUID) (likes, dislikes int64, err error)
	UserReaction(ctx context.Context, commentID, userID uuid.UUID) (string, error)
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *entity.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error) {
	var comment entity.Comment
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Reactions").
		Where("id = ?", id).
		First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) FindByMaterialID(ctx context.Context, materialID uuid.UUID) ([]*entity.Comment, error) {
	var comments []*entity.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Reactions").
		Where("material_id = ?", materialID).
		Order("created_at asc").
		Find(&comments).Error
	return comments, err
}

// Delete removes the comment and the rows it owns (reactions, reports)
// in one transaction. The parent material is untouched.
func (r *commentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", id).Delete(&entity.CommentReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("comment_id = ?", id).Delete(&entity.Report{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Comment{}, "id = ?", id).Error
	})
}

func (r *commentRepository) ToggleReaction(ctx context.Context, commentID, userID uuid.UUID, kind string) (string, string, error) {
	var oldKind, newKind string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Use Find with slice to avoid "record not found" log noise from GORM's First()
		var existing []entity.CommentReaction
		if err := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).
			Limit(1).
			Find(&existing).Error; err != nil {
			return err
		}

		if len(existing) > 0 {
			record := existing[0]
			oldKind = record.Kind

			if record.Kind == kind {
				// Same kind again -> undo
				return tx.Delete(&record).Error
			}

			// Opposite kind -> replace, never both at once
			record.Kind = kind
			newKind = kind
			return tx.Save(&record).Error
		}

		newKind = kind
		return tx.Create(&entity.CommentReaction{
			CommentID: commentID,
			UserID:    userID,
			Kind:      kind,
		}).Error
	})

	return oldKind, newKind, err
}

func (r *commentRepository) ReactionCounts(ctx context.Context, commentID uuid.UUID) (int64, int64, error) {
	type result struct {
		Kind  string
		Count int64
	}
	var results []result

	err := r.db.WithContext(ctx).
		Model(&entity.CommentReaction{}).
		Select("kind, count(*) as count").
		Where("comment_id = ?", commentID).
		Group("kind").
		Scan(&results).Error
	if err != nil {
		return 0, 0, err
	}

	var likes, dislikes int64
	for _, res := range results {
		switch res.Kind {
		case entity.ReactionLike:
			likes = res.Count
		case entity.ReactionDislike:
			dislikes = res.Count
		}
	}
	return likes, dislikes, nil
}

func (r *commentRepository) UserReaction(ctx context.Context, commentID, userID uuid.UUID) (string, error) {
	var kinds []string
	err := r.db.WithContext(ctx).
		Model(&entity.CommentReaction{}).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Pluck("kind", &kinds).Error
	if err != nil {
		return "", err
	}
	if len(kinds) == 0 {
		return "", nil
	}
	return kinds[0], nil
}
