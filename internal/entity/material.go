package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Material struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User   User      `gorm:"constraint:OnDelete:CASCADE" json:"user"`

	Title        string `gorm:"size:255;not null" json:"title"`
	Description  string `gorm:"type:text" json:"description"`
	Subject      string `gorm:"size:100;index" json:"subject"`
	MaterialType string `gorm:"size:50;index" json:"material_type"`
	Year         string `gorm:"size:20;index" json:"year"`

	FileURL  string `gorm:"type:text;not null" json:"file_url"`
	FileName string `gorm:"size:255" json:"file_name"`
	FileSize int64  `json:"file_size"`

	// Derived rating summary. Never written directly by clients; recomputed
	// in full from material_ratings on every submission.
	RatingAverage   float64        `gorm:"default:0" json:"rating_average"`
	RatingCount     int            `gorm:"default:0" json:"rating_count"`
	RatingBreakdown datatypes.JSON `gorm:"type:json" json:"rating_breakdown"`

	Views     int `gorm:"default:0" json:"views"`
	Downloads int `gorm:"default:0" json:"downloads"`

	IsActive   bool `gorm:"not null;default:true" json:"is_active"`
	IsApproved bool `gorm:"not null;default:true" json:"is_approved"`

	Ratings  []MaterialRating `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Comments []Comment        `gorm:"constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	Reports  []Report         `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m *Material) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID, err = uuid.NewV7()
	}
	return
}

// Breakdown decodes the per-star counts column. Index 0 holds 1-star counts.
func (m *Material) Breakdown() [5]int {
	var b [5]int
	if len(m.RatingBreakdown) > 0 {
		_ = json.Unmarshal(m.RatingBreakdown, &b)
	}
	return b
}

func (m *Material) SetBreakdown(b [5]int) {
	raw, _ := json.Marshal(b)
	m.RatingBreakdown = datatypes.JSON(raw)
}

// MaterialRating is one user's current rating of a material. At most one row
// per (material, user); re-rating updates the row in place.
type MaterialRating struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MaterialID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_material_user_rating" json:"material_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_material_user_rating" json:"user_id"`
	Stars      int       `gorm:"not null" json:"stars"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *MaterialRating) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}

// Favorite marks a material as favorited by a user.
type Favorite struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_material_favorite" json:"user_id"`
	MaterialID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_material_favorite" json:"material_id"`
	Material   Material  `gorm:"constraint:OnDelete:CASCADE" json:"material,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (f *Favorite) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID, err = uuid.NewV7()
	}
	return
}
