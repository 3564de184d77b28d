package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/edushare/edushare-backend/internal/entity"
	commentDto "github.com/edushare/edushare-backend/internal/modules/comment/dto"
	materialDto "github.com/edushare/edushare-backend/internal/modules/material/dto"
	materialRepo "github.com/edushare/edushare-backend/internal/modules/material/repository"
	favoriteRepo "github.com/edushare/edushare-backend/internal/modules/favorite/repository"
	ratingRepo "github.com/edushare/edushare-backend/internal/modules/rating/repository"
	ratingService "github.com/edushare/edushare-backend/internal/modules/rating/service"
	searchService "github.com/edushare/edushare-backend/internal/modules/search/service"
	userRepo "github.com/edushare/edushare-backend/internal/modules/user/repository"
	viewService "github.com/edushare/edushare-backend/internal/modules/view/service"
	"github.com/edushare/edushare-backend/pkg/apperror"
	pkgDto "github.com/edushare/edushare-backend/pkg/dto"
	"github.com/edushare/edushare-backend/pkg/ratelimiter"
	"github.com/edushare/edushare-backend/pkg/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const maxUploadSize = 50 << 20 // 50 MB

var allowedExtensions = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".ppt": {}, ".pptx": {},
	".xls": {}, ".xlsx": {}, ".txt": {}, ".md": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".zip": {},
}

type MaterialService interface {
	Upload(ctx context.Context, userID uuid.UUID, req materialDto.UploadMaterialRequest, file io.Reader, fileName string, fileSize int64) (*materialDto.MaterialResponse, error)
	// GetDetail returns the material with its comment thread and, when a
	// viewer key is given, registers a deduplicated view.
	GetDetail(ctx context.Context, materialID uuid.UUID, viewerID *uuid.UUID, viewerKey string) (*materialDto.MaterialDetailResponse, error)
	List(ctx context.Context, filter pkgDto.MaterialFilter) (*materialDto.PaginatedMaterialsResponse, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) (*materialDto.PaginatedMaterialsResponse, error)
	Download(ctx context.Context, materialID uuid.UUID) (*materialDto.DownloadResponse, error)
	// Delete removes a material when the caller owns it or is an admin.
	Delete(ctx context.Context, actorID, materialID uuid.UUID, isAdmin bool) error
	// HardDelete removes the material, its blob, its search document, and
	// every child record, then repairs the author's counters. Shared with
	// report resolution.
	HardDelete(ctx context.Context, material *entity.Material) error
}

type materialService struct {
	materialRepo  materialRepo.MaterialRepository
	userRepo      userRepo.UserRepository
	ratingRepo    ratingRepo.RatingRepository
	favoriteRepo  favoriteRepo.FavoriteRepository
	ratingService ratingService.RatingService
	viewService   viewService.ViewService
	searchService searchService.SearchService
	fileStorage   storage.FileStorage
	redisClient   *redis.Client
}

func NewMaterialService(
	materialRepo materialRepo.MaterialRepository,
	userRepo userRepo.UserRepository,
	ratingRepo ratingRepo.RatingRepository,
	favoriteRepo favoriteRepo.FavoriteRepository,
	ratingService ratingService.RatingService,
	viewService viewService.ViewService,
	searchService searchService.SearchService,
	fileStorage storage.FileStorage,
	redisClient *redis.Client,
) MaterialService {
	return &materialService{
		materialRepo:  materialRepo,
		userRepo:      userRepo,
		ratingRepo:    ratingRepo,
		favoriteRepo:  favoriteRepo,
		ratingService: ratingService,
		viewService:   viewService,
		searchService: searchService,
		fileStorage:   fileStorage,
		redisClient:   redisClient,
	}
}

func (s *materialService) Upload(ctx context.Context, userID uuid.UUID, req materialDto.UploadMaterialRequest, file io.Reader, fileName string, fileSize int64) (*materialDto.MaterialResponse, error) {
	if file == nil || fileName == "" {
		return nil, fmt.Errorf("%w: file is required", apperror.ErrInvalidInput)
	}
	if fileSize > maxUploadSize {
		return nil, fmt.Errorf("%w: file exceeds the 50MB limit", apperror.ErrInvalidInput)
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, fmt.Errorf("%w: file type %q is not allowed", apperror.ErrInvalidInput, ext)
	}

	uploadLimit := ratelimiter.GetDurationFromEnv("RATE_LIMIT_UPLOAD", 1*time.Minute)
	allowed, err := ratelimiter.CheckAndSetRateLimit(ctx, s.redisClient, userID, "upload", uploadLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		ttl, _ := ratelimiter.GetRateLimitTTL(ctx, s.redisClient, userID, "upload")
		return nil, &ratelimiter.RateLimitError{
			Message:    fmt.Sprintf("you are uploading too fast. Please wait %.0f seconds", ttl.Seconds()),
			RetryAfter: ttl,
		}
	}

	fileURL, err := s.fileStorage.UploadFile(ctx, file, "materials", fileName)
	if err != nil {
		_ = ratelimiter.ClearRateLimit(ctx, s.redisClient, userID, "upload")
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	material := &entity.Material{
		UserID:       userID,
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		Subject:      req.Subject,
		MaterialType: req.MaterialType,
		Year:         req.Year,
		FileURL:      fileURL,
		FileName:     fileName,
		FileSize:     fileSize,
		IsActive:     true,
		IsApproved:   true,
	}
	material.SetBreakdown([5]int{})

	if err := s.materialRepo.Create(ctx, material); err != nil {
		// The blob is now orphaned; try to reclaim it before bailing.
		if delErr := s.fileStorage.DeleteFile(ctx, fileURL); delErr != nil {
			log.Printf("material: failed to clean up blob after create failure: %v", delErr)
		}
		_ = ratelimiter.ClearRateLimit(ctx, s.redisClient, userID, "upload")
		return nil, err
	}

	if err := s.userRepo.IncrementUploadCount(ctx, userID); err != nil {
		log.Printf("material: failed to increment upload count for %s: %v", userID, err)
	}

	loaded, err := s.materialRepo.FindByID(ctx, material.ID)
	if err == nil {
		material = loaded
	}

	go func() {
		if s.searchService != nil {
			if err := s.searchService.IndexMaterial(material); err != nil {
				log.Printf("material: failed to index material %s: %v", material.ID, err)
			}
		}
	}()

	return s.mapToResponse(material), nil
}

func (s *materialService) GetDetail(ctx context.Context, materialID uuid.UUID, viewerID *uuid.UUID, viewerKey string) (*materialDto.MaterialDetailResponse, error) {
	material, err := s.materialRepo.FindActiveByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	// View registration is best effort; a miss never fails the read.
	if s.viewService != nil && viewerKey != "" {
		if counted, err := s.viewService.RegisterView(ctx, materialID, viewerKey); err != nil {
			log.Printf("material: failed to register view for %s: %v", materialID, err)
		} else if counted {
			material.Views++
		}
	}

	resp := &materialDto.MaterialDetailResponse{
		MaterialResponse: *s.mapToResponse(material),
		RatingBreakdown:  material.Breakdown(),
		Comments:         make([]*commentDto.CommentResponse, 0, len(material.Comments)),
	}

	for i := range material.Comments {
		resp.Comments = append(resp.Comments, mapComment(&material.Comments[i], viewerID))
	}

	if viewerID != nil {
		if rating, err := s.ratingRepo.FindUserRating(ctx, materialID, *viewerID); err == nil && rating != nil {
			resp.UserRating = rating.Stars
		}
		if favorited, err := s.favoriteRepo.Exists(ctx, *viewerID, materialID); err == nil {
			resp.IsFavorited = favorited
		}
	}

	return resp, nil
}

func (s *materialService) List(ctx context.Context, filter pkgDto.MaterialFilter) (*materialDto.PaginatedMaterialsResponse, error) {
	materials, total, err := s.materialRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.paginate(materials, total, filter.Page, filter.Limit), nil
}

func (s *materialService) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) (*materialDto.PaginatedMaterialsResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	materials, total, err := s.materialRepo.FindByUserID(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return s.paginate(materials, total, page, limit), nil
}

func (s *materialService) Download(ctx context.Context, materialID uuid.UUID) (*materialDto.DownloadResponse, error) {
	material, err := s.materialRepo.FindActiveByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if err := s.materialRepo.IncrementDownloads(ctx, materialID); err != nil {
		log.Printf("material: failed to increment downloads for %s: %v", materialID, err)
	}

	return &materialDto.DownloadResponse{
		FileURL:  material.FileURL,
		FileName: material.FileName,
	}, nil
}

func (s *materialService) Delete(ctx context.Context, actorID, materialID uuid.UUID, isAdmin bool) error {
	material, err := s.materialRepo.FindByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return err
	}

	if material.UserID != actorID && !isAdmin {
		return apperror.ErrForbidden
	}

	return s.HardDelete(ctx, material)
}

func (s *materialService) HardDelete(ctx context.Context, material *entity.Material) error {
	// Blob and search document removal are log-and-continue: a dangling blob
	// is preferable to a material that refuses to die.
	if s.fileStorage != nil && material.FileURL != "" {
		if err := s.fileStorage.DeleteFile(ctx, material.FileURL); err != nil {
			log.Printf("material: failed to delete blob for %s: %v", material.ID, err)
		}
	}
	if s.searchService != nil {
		if err := s.searchService.DeleteMaterial(material.ID.String()); err != nil {
			log.Printf("material: failed to deindex material %s: %v", material.ID, err)
		}
	}

	if err := s.materialRepo.Delete(ctx, material.ID); err != nil {
		return err
	}

	applied, err := s.userRepo.DecrementUploadCount(ctx, material.UserID)
	if err != nil {
		log.Printf("material: failed to decrement upload count for %s: %v", material.UserID, err)
	} else if !applied {
		// Counter drifted to zero while a material still existed; rebuild it
		// from the source of truth.
		count, err := s.materialRepo.CountActiveByUserID(ctx, material.UserID)
		if err == nil {
			if err := s.userRepo.SetUploadCount(ctx, material.UserID, int(count)); err != nil {
				log.Printf("material: failed to repair upload count for %s: %v", material.UserID, err)
			}
		}
	}

	// The author's reputation no longer includes this material's ratings.
	if s.ratingService != nil {
		if _, err := s.ratingService.RecalcReputation(ctx, material.UserID); err != nil {
			log.Printf("material: failed to recalc reputation for %s: %v", material.UserID, err)
		}
	}

	return nil
}

func (s *materialService) paginate(materials []*entity.Material, total int64, page, limit int) *materialDto.PaginatedMaterialsResponse {
	responses := make([]*materialDto.MaterialResponse, 0, len(materials))
	for _, m := range materials {
		responses = append(responses, s.mapToResponse(m))
	}
	return &materialDto.PaginatedMaterialsResponse{
		Materials:  responses,
		Pagination: pkgDto.NewPagination(page, limit, total),
	}
}

func (s *materialService) mapToResponse(material *entity.Material) *materialDto.MaterialResponse {
	return &materialDto.MaterialResponse{
		ID: material.ID,
		User: materialDto.MaterialAuthor{
			ID:         material.User.ID,
			Username:   material.User.Username,
			AvatarURL:  material.User.AvatarURL,
			Reputation: material.User.Reputation,
		},
		Title:         material.Title,
		Description:   material.Description,
		Subject:       material.Subject,
		MaterialType:  material.MaterialType,
		Year:          material.Year,
		FileName:      material.FileName,
		FileSize:      material.FileSize,
		RatingAverage: material.RatingAverage,
		RatingCount:   material.RatingCount,
		Views:         material.Views,
		Downloads:     material.Downloads,
		CreatedAt:     material.CreatedAt,
	}
}

func mapComment(comment *entity.Comment, viewerID *uuid.UUID) *commentDto.CommentResponse {
	resp := &commentDto.CommentResponse{
		ID:         comment.ID,
		MaterialID: comment.MaterialID,
		User: commentDto.CommentAuthor{
			ID:        comment.User.ID,
			Username:  comment.User.Username,
			AvatarURL: comment.User.AvatarURL,
		},
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt,
	}
	for _, r := range comment.Reactions {
		switch r.Kind {
		case entity.ReactionLike:
			resp.Likes++
		case entity.ReactionDislike:
			resp.Dislikes++
		}
		if viewerID != nil && r.UserID == *viewerID {
			resp.UserReaction = r.Kind
		}
	}
	return resp
}
