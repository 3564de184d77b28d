package dto

import (
	"time"

	commentDto "github.com/edushare/edushare-backend/internal/modules/comment/dto"
	pkgDto "github.com/edushare/edushare-backend/pkg/dto"
	"github.com/google/uuid"
)

type UploadMaterialRequest struct {
	Title        string `form:"title" binding:"required,min=3,max=255"`
	Description  string `form:"description" binding:"max=5000"`
	Subject      string `form:"subject" binding:"required,max=100"`
	MaterialType string `form:"material_type" binding:"required,max=50"`
	Year         string `form:"year" binding:"max=20"`
}

type MaterialAuthor struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	AvatarURL  *string   `json:"avatar_url,omitempty"`
	Reputation float64   `json:"reputation"`
}

type MaterialResponse struct {
	ID            uuid.UUID      `json:"id"`
	User          MaterialAuthor `json:"user"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Subject       string         `json:"subject"`
	MaterialType  string         `json:"material_type"`
	Year          string         `json:"year"`
	FileName      string         `json:"file_name"`
	FileSize      int64          `json:"file_size"`
	RatingAverage float64        `json:"rating_average"`
	RatingCount   int            `json:"rating_count"`
	Views         int            `json:"views"`
	Downloads     int            `json:"downloads"`
	CreatedAt     time.Time      `json:"created_at"`
}

// MaterialDetailResponse adds viewer-specific state and the comment thread to
// the list shape.
type MaterialDetailResponse struct {
	MaterialResponse
	RatingBreakdown [5]int                        `json:"rating_breakdown"`
	UserRating      int                           `json:"user_rating,omitempty"`
	IsFavorited     bool                          `json:"is_favorited"`
	Comments        []*commentDto.CommentResponse `json:"comments"`
}

type PaginatedMaterialsResponse struct {
	Materials []*MaterialResponse `json:"materials"`
	pkgDto.Pagination
}

type DownloadResponse struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
}
