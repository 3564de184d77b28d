package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// Comment lives and dies with its parent material: removed when the material
// is deleted or when an admin resolves a report against it with "delete".
type Comment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MaterialID uuid.UUID `gorm:"type:uuid;not null;index" json:"material_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	User       User      `gorm:"constraint:OnDelete:CASCADE" json:"user"`
	Text       string    `gorm:"size:1000;not null" json:"text"`

	Reactions []CommentReaction `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Reports   []Report          `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}

// CommentReaction is a like or dislike. One row per (comment, user); a user
// can never hold both kinds at once.
type CommentReaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CommentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_comment_user_reaction" json:"comment_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_comment_user_reaction" json:"user_id"`
	Kind      string    `gorm:"size:10;not null" json:"kind"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (r *CommentReaction) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}
