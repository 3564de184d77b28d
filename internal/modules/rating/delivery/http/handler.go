package handler

import (
	"net/http"

	ratingDto "github.com/edushare/edushare-backend/internal/modules/rating/dto"
	rating "github.com/edushare/edushare-backend/internal/modules/rating/service"
	"github.com/edushare/edushare-backend/pkg/response"
	validatorPkg "github.com/edushare/edushare-backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RatingHandler struct {
	service rating.RatingService
}

func NewRatingHandler(service rating.RatingService) *RatingHandler {
	return &RatingHandler{service: service}
}

func (h *RatingHandler) Submit(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	materialID, err := uuid.Parse(c.Param("material_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid material id"})
		return
	}

	var req ratingDto.SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validatorPkg.FormatValidationError(err)})
		return
	}

	resp, err := h.service.SubmitRating(c.Request.Context(), userID, materialID, req.Stars)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
