package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:20;not null;default:'student'" json:"role"`
	AvatarURL    *string   `gorm:"type:text" json:"avatar_url,omitempty"`

	// Reputation is derived from the rating averages of the user's active,
	// approved materials that have at least one rating. Recomputed async on
	// every rating submission and on demand when the user opens their own
	// profile.
	Reputation float64 `gorm:"default:0" json:"reputation"`

	// UploadCount tracks active materials. Self-healing: recomputed from the
	// materials table whenever a decrement would push it negative.
	UploadCount int `gorm:"default:0" json:"upload_count"`

	// Notification preferences, all on by default.
	NotifyRating          bool `gorm:"not null;default:true" json:"notify_rating"`
	NotifyCommentOwn      bool `gorm:"not null;default:true" json:"notify_comment_own"`
	NotifyCommentFavorite bool `gorm:"not null;default:true" json:"notify_comment_favorite"`
	NotifyReport          bool `gorm:"not null;default:true" json:"notify_report"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
