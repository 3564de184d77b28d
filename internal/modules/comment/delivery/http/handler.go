package handler

import (
	"fmt"
	"net/http"

	commentDto "github.com/edushare/edushare-backend/internal/modules/comment/dto"
	comment "github.com/edushare/edushare-backend/internal/modules/comment/service"
	"github.com/edushare/edushare-backend/pkg/ratelimiter"
	"github.com/edushare/edushare-backend/pkg/response"
	validatorPkg "github.com/edushare/edushare-backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CommentHandler struct {
	service comment.CommentService
}

func NewCommentHandler(service comment.CommentService) *CommentHandler {
	return &CommentHandler{service: service}
}

func (h *CommentHandler) Create(c *gin.Context) {
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

	var req commentDto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validatorPkg.FormatValidationError(err)})
		return
	}

	resp, err := h.service.CreateComment(c.Request.Context(), userID, materialID, req)
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

func (h *CommentHandler) List(c *gin.Context) {
	materialID, err := uuid.Parse(c.Param("material_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid material id"})
		return
	}

	viewerID := response.OptionalUserID(c)

	resp, err := h.service.GetByMaterialID(c.Request.Context(), materialID, viewerID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CommentHandler) ToggleReaction(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	commentID, err := uuid.Parse(c.Param("comment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}

	var req commentDto.ToggleReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validatorPkg.FormatValidationError(err)})
		return
	}

	resp, err := h.service.ToggleReaction(c.Request.Context(), userID, commentID, req.Kind)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
