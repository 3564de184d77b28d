package handler

import (
	"fmt"
	"net/http"
	"strconv"

	materialDto "github.com/edushare/edushare-backend/internal/modules/material/dto"
	material "github.com/edushare/edushare-backend/internal/modules/material/service"
	userRepo "github.com/edushare/edushare-backend/internal/modules/user/repository"
	pkgDto "github.com/edushare/edushare-backend/pkg/dto"
	"github.com/edushare/edushare-backend/pkg/ratelimiter"
	"github.com/edushare/edushare-backend/pkg/response"
	validatorPkg "github.com/edushare/edushare-backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MaterialHandler struct {
	service  material.MaterialService
	userRepo userRepo.UserRepository
}

func NewMaterialHandler(service material.MaterialService, userRepo userRepo.UserRepository) *MaterialHandler {
	return &MaterialHandler{service: service, userRepo: userRepo}
}

func (h *MaterialHandler) Upload(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req materialDto.UploadMaterialRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validatorPkg.FormatValidationError(err)})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer file.Close()

	resp, err := h.service.Upload(c.Request.Context(), userID, req, file, fileHeader.Filename, fileHeader.Size)
	if err != nil {
		if rateLimitErr, ok := err.(*ratelimiter.RateLimitError); ok {
			c.Header("Retry-After", fmt.Sprintf("%.0f", rateLimitErr.RetryAfter.Seconds()))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": rateLimitErr.Message})
			return
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *MaterialHandler) Get(c *gin.Context) {
	materialID, err := uuid.Parse(c.Param("material_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid material id"})
		return
	}

	viewerID := response.OptionalUserID(c)

	// Logged-in viewers dedup by account, anonymous ones by client address.
	viewerKey := c.ClientIP()
	if viewerID != nil {
		viewerKey = viewerID.String()
	}

	resp, err := h.service.GetDetail(c.Request.Context(), materialID, viewerID, viewerKey)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *MaterialHandler) List(c *gin.Context) {
	filter := pkgDto.MaterialFilter{
		Page:         parseIntQuery(c, "page", 1),
		Limit:        parseIntQuery(c, "limit", 20),
		Search:       c.Query("search"),
		Subject:      c.Query("subject"),
		MaterialType: c.Query("material_type"),
		Year:         c.Query("year"),
		SortBy:       c.Query("sort_by"),
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	resp, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *MaterialHandler) MyMaterials(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	resp, err := h.service.ListByUser(c.Request.Context(), userID, parseIntQuery(c, "page", 1), parseIntQuery(c, "limit", 20))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *MaterialHandler) Download(c *gin.Context) {
	materialID, err := uuid.Parse(c.Param("material_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid material id"})
		return
	}

	resp, err := h.service.Download(c.Request.Context(), materialID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *MaterialHandler) Delete(c *gin.Context) {
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

	isAdmin := false
	if user, err := h.userRepo.FindByID(c.Request.Context(), userID.String()); err == nil {
		isAdmin = user.IsAdmin()
	}

	if err := h.service.Delete(c.Request.Context(), userID, materialID, isAdmin); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "material deleted successfully"})
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
