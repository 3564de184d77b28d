package dto

import (
	"time"

	pkgDto "github.com/edushare/edushare-backend/pkg/dto"
	"github.com/google/uuid"
)

type FavoriteItem struct {
	MaterialID    uuid.UUID `json:"material_id"`
	Title         string    `json:"title"`
	Subject       string    `json:"subject"`
	MaterialType  string    `json:"material_type"`
	AuthorName    string    `json:"author_name"`
	RatingAverage float64   `json:"rating_average"`
	FavoritedAt   time.Time `json:"favorited_at"`
}

type FavoriteListResponse struct {
	Favorites []*FavoriteItem `json:"favorites"`
	pkgDto.Pagination
}

type ToggleFavoriteResponse struct {
	MaterialID uuid.UUID `json:"material_id"`
	Favorited  bool      `json:"favorited"`
}
