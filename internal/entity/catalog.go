package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CatalogYear         = "year"
	CatalogMaterialType = "material_type"
)

// CatalogItem is an admin-managed list entry (academic years, material types)
// used to populate upload form options.
type CatalogItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Kind      string    `gorm:"size:30;not null;uniqueIndex:idx_catalog_kind_value" json:"kind"`
	Value     string    `gorm:"size:100;not null;uniqueIndex:idx_catalog_kind_value" json:"value"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *CatalogItem) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}
