package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	NotificationComment  = "comment"
	NotificationRating   = "rating"
	NotificationFavorite = "favorite"
	NotificationReport   = "report"
)

type Notification struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"` // recipient

	// ActorID is the user whose action triggered the notification; nil for
	// system notifications. Never equal to UserID (no self-notification).
	ActorID *uuid.UUID `gorm:"type:uuid" json:"actor_id,omitempty"`

	// MaterialID is kept as a plain reference (no FK) so notifications
	// survive a material's hard delete.
	MaterialID uuid.UUID `gorm:"type:uuid;not null" json:"material_id"`

	Type     string         `gorm:"size:20;not null" json:"type"` // comment, rating, favorite, report
	Message  string         `gorm:"type:text" json:"message"`
	IsRead   bool           `gorm:"not null;default:false" json:"is_read"`
	Metadata datatypes.JSON `gorm:"type:json" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Associations - using pointers to avoid recursion if User has Notifications
	User  *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}
