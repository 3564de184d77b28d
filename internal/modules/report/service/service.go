package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/edushare/edushare-backend/internal/entity"
	commentRepo "github.com/edushare/edushare-backend/internal/modules/comment/repository"
	materialRepo "github.com/edushare/edushare-backend/internal/modules/material/repository"
	materialService "github.com/edushare/edushare-backend/internal/modules/material/service"
	notifService "github.com/edushare/edushare-backend/internal/modules/notification/service"
	reportDto "github.com/edushare/edushare-backend/internal/modules/report/dto"
	reportRepo "github.com/edushare/edushare-backend/internal/modules/report/repository"
	"github.com/edushare/edushare-backend/pkg/apperror"
	pkgDto "github.com/edushare/edushare-backend/pkg/dto"
	"github.com/edushare/edushare-backend/pkg/keylock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	minReasonLength = 10
	maxReasonLength = 500
)

type ReportService interface {
	// ReportMaterial files a report against a whole material. A reporter can
	// file against the same target only once; repeats are rejected.
	ReportMaterial(ctx context.Context, reporterID, materialID uuid.UUID, reason string) (*reportDto.ReportResponse, error)
	ReportComment(ctx context.Context, reporterID, commentID uuid.UUID, reason string) (*reportDto.ReportResponse, error)
	// Resolve closes a report. "ignore" discards it; "delete" also removes
	// the reported content (the comment, or the whole material).
	Resolve(ctx context.Context, reportID uuid.UUID, action string) error
	Feed(ctx context.Context, page, limit int) (*reportDto.FeedResponse, error)
}

type reportService struct {
	reportRepo          reportRepo.ReportRepository
	materialRepo        materialRepo.MaterialRepository
	commentRepo         commentRepo.CommentRepository
	materialService     materialService.MaterialService
	notificationService notifService.NotificationService
	locks               *keylock.KeyLock
}

func NewReportService(
	reportRepo reportRepo.ReportRepository,
	materialRepo materialRepo.MaterialRepository,
	commentRepo commentRepo.CommentRepository,
	materialService materialService.MaterialService,
	notificationService notifService.NotificationService,
	locks *keylock.KeyLock,
) ReportService {
	return &reportService{
		reportRepo:          reportRepo,
		materialRepo:        materialRepo,
		commentRepo:         commentRepo,
		materialService:     materialService,
		notificationService: notificationService,
		locks:               locks,
	}
}

func (s *reportService) ReportMaterial(ctx context.Context, reporterID, materialID uuid.UUID, reason string) (*reportDto.ReportResponse, error) {
	material, err := s.materialRepo.FindActiveByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	return s.file(ctx, material, nil, reporterID, reason)
}

func (s *reportService) ReportComment(ctx context.Context, reporterID, commentID uuid.UUID, reason string) (*reportDto.ReportResponse, error) {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	material, err := s.materialRepo.FindActiveByID(ctx, comment.MaterialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	return s.file(ctx, material, &comment.ID, reporterID, reason)
}

func (s *reportService) file(ctx context.Context, material *entity.Material, commentID *uuid.UUID, reporterID uuid.UUID, reason string) (*reportDto.ReportResponse, error) {
	reason = strings.TrimSpace(reason)
	if n := utf8.RuneCountInString(reason); n < minReasonLength || n > maxReasonLength {
		return nil, fmt.Errorf("%w: report reason must be between %d and %d characters", apperror.ErrInvalidInput, minReasonLength, maxReasonLength)
	}

	// The duplicate check and the insert are a read-modify-write on the
	// material's report set, serialized like every other mutation of the
	// aggregate so two identical reports cannot both pass the check.
	unlock := s.locks.Lock(material.ID.String())
	defer unlock()

	exists, err := s.reportRepo.Exists(ctx, material.ID, commentID, reporterID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.ErrDuplicateReport
	}

	report := &entity.Report{
		MaterialID: material.ID,
		CommentID:  commentID,
		ReporterID: reporterID,
		Reason:     reason,
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, err
	}

	go func() {
		if s.notificationService != nil {
			s.notificationService.DispatchReportNotifications(context.Background(), material, report)
		}
	}()

	return &reportDto.ReportResponse{
		ID:         report.ID,
		MaterialID: report.MaterialID,
		CommentID:  report.CommentID,
		Reason:     report.Reason,
	}, nil
}

func (s *reportService) Resolve(ctx context.Context, reportID uuid.UUID, action string) error {
	if action != entity.ReportActionDelete && action != entity.ReportActionIgnore {
		return fmt.Errorf("%w: action must be delete or ignore", apperror.ErrInvalidInput)
	}

	report, err := s.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return err
	}

	if action == entity.ReportActionIgnore {
		return s.reportRepo.Delete(ctx, reportID)
	}

	unlock := s.locks.Lock(report.MaterialID.String())
	defer unlock()

	if report.IsCommentReport() {
		// Removing the comment also removes every report filed against it,
		// this one included. A comment already gone just closes the report.
		if err := s.commentRepo.Delete(ctx, *report.CommentID); err != nil {
			return err
		}
		return s.reportRepo.Delete(ctx, reportID)
	}

	material, err := s.materialRepo.FindByID(ctx, report.MaterialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Content is already gone; just close the report.
			return s.reportRepo.Delete(ctx, reportID)
		}
		return err
	}

	// Deleting the material cascades to all of its reports.
	if err := s.materialService.HardDelete(ctx, material); err != nil {
		return err
	}
	if err := s.reportRepo.Delete(ctx, reportID); err != nil {
		log.Printf("report: failed to delete resolved report %s: %v", reportID, err)
	}
	return nil
}

func (s *reportService) Feed(ctx context.Context, page, limit int) (*reportDto.FeedResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	items, total, err := s.reportRepo.Feed(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	return &reportDto.FeedResponse{
		Reports:    items,
		Pagination: pkgDto.NewPagination(page, limit, total),
	}, nil
}
