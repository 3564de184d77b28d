package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReportActionDelete = "delete"
	ReportActionIgnore = "ignore"
)

// Report flags a material or one of its comments. CommentID nil means the
// report targets the material itself. A single table keyed by globally unique
// id gives resolution one unambiguous lookup regardless of scope.
type Report struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	MaterialID uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_reports_target" json:"material_id"`
	CommentID  *uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_reports_target" json:"comment_id,omitempty"`
	ReporterID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_reports_target" json:"reporter_id"`
	Reporter   User       `gorm:"foreignKey:ReporterID;constraint:OnDelete:CASCADE" json:"reporter"`
	Reason     string     `gorm:"size:500;not null" json:"reason"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}

// IsCommentReport reports whether the target is a comment rather than the
// material itself.
func (r *Report) IsCommentReport() bool {
	return r.CommentID != nil
}
