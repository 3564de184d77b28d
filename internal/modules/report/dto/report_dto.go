package dto

import (
	"github.com/edushare/edushare-backend/internal/modules/report/repository"
	pkgDto "github.com/edushare/edushare-backend/pkg/dto"
	"github.com/google/uuid"
)

type CreateReportRequest struct {
	Reason string `json:"reason" binding:"required,min=10,max=500"`
}

type ResolveReportRequest struct {
	Action string `json:"action" binding:"required,oneof=delete ignore"`
}

type ReportResponse struct {
	ID         uuid.UUID  `json:"id"`
	MaterialID uuid.UUID  `json:"material_id"`
	CommentID  *uuid.UUID `json:"comment_id,omitempty"`
	Reason     string     `json:"reason"`
}

type FeedResponse struct {
	Reports []repository.FeedItem `json:"reports"`
	pkgDto.Pagination
}
