package handler

import (
	"net/http"
	"strconv"

	reportDto "github.com/edushare/edushare-backend/internal/modules/report/dto"
	report "github.com/edushare/edushare-backend/internal/modules/report/service"
	"github.com/edushare/edushare-backend/pkg/response"
	validatorPkg "github.com/edushare/edushare-backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReportHandler struct {
	service report.ReportService
}

func NewReportHandler(service report.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) ReportMaterial(c *gin.Context) {
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

	var req reportDto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validatorPkg.FormatValidationError(err)})
		return
	}

	resp, err := h.service.ReportMaterial(c.Request.Context(), userID, materialID, req.Reason)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *ReportHandler) ReportComment(c *gin.Context) {
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

	var req reportDto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validatorPkg.FormatValidationError(err)})
		return
	}

	resp, err := h.service.ReportComment(c.Request.Context(), userID, commentID, req.Reason)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *ReportHandler) Feed(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	resp, err := h.service.Feed(c.Request.Context(), page, limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ReportHandler) Resolve(c *gin.Context) {
	reportID, err := uuid.Parse(c.Param("report_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return
	}

	var req reportDto.ResolveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validatorPkg.FormatValidationError(err)})
		return
	}

	if err := h.service.Resolve(c.Request.Context(), reportID, req.Action); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "report resolved"})
}
