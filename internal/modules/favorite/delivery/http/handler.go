package handler

import (
	"net/http"
	"strconv"

	favoriteDto "github.com/edushare/edushare-backend/internal/modules/favorite/dto"
	favorite "github.com/edushare/edushare-backend/internal/modules/favorite/service"
	"github.com/edushare/edushare-backend/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FavoriteHandler struct {
	service favorite.FavoriteService
}

func NewFavoriteHandler(service favorite.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

func (h *FavoriteHandler) Toggle(c *gin.Context) {
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

	favorited, err := h.service.Toggle(c.Request.Context(), userID, materialID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, favoriteDto.ToggleFavoriteResponse{
		MaterialID: materialID,
		Favorited:  favorited,
	})
}

func (h *FavoriteHandler) List(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	resp, err := h.service.List(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
