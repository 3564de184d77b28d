package handler

import (
	"net/http"

	catalog "github.com/edushare/edushare-backend/internal/modules/catalog/service"
	"github.com/edushare/edushare-backend/pkg/response"
	validatorPkg "github.com/edushare/edushare-backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CatalogHandler struct {
	service catalog.CatalogService
}

func NewCatalogHandler(service catalog.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

type addCatalogItemRequest struct {
	Kind  string `json:"kind" binding:"required,oneof=year material_type"`
	Value string `json:"value" binding:"required,max=100"`
}

func (h *CatalogHandler) List(c *gin.Context) {
	kind := c.Query("kind")

	items, err := h.service.ListByKind(c.Request.Context(), kind)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *CatalogHandler) Add(c *gin.Context) {
	var req addCatalogItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validatorPkg.FormatValidationError(err)})
		return
	}

	item, err := h.service.Add(c.Request.Context(), req.Kind, req.Value)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *CatalogHandler) Remove(c *gin.Context) {
	id, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	if err := h.service.Remove(c.Request.Context(), id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "catalog item removed"})
}
