package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edushare/edushare-backend/internal/entity"
	commentDto "github.com/edushare/edushare-backend/internal/modules/comment/dto"
	commentRepo "github.com/edushare/edushare-backend/internal/modules/comment/repository"
	materialRepo "github.com/edushare/edushare-backend/internal/modules/material/repository"
	notifService "github.com/edushare/edushare-backend/internal/modules/notification/service"
	"github.com/edushare/edushare-backend/internal/realtime"
	"github.com/edushare/edushare-backend/pkg/apperror"
	"github.com/edushare/edushare-backend/pkg/keylock"
	"github.com/edushare/edushare-backend/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const maxCommentLength = 1000

type CommentService interface {
	CreateComment(ctx context.Context, userID, materialID uuid.UUID, req commentDto.CreateCommentRequest) (*commentDto.CommentResponse, error)
	// ToggleReaction flips the caller's like/dislike on a comment. Same kind
	// twice restores the prior state; like and dislike are mutually
	// exclusive.
	ToggleReaction(ctx context.Context, userID, commentID uuid.UUID, kind string) (*commentDto.ReactionStateResponse, error)
	GetByMaterialID(ctx context.Context, materialID uuid.UUID, userID *uuid.UUID) ([]*commentDto.CommentResponse, error)
}

type commentService struct {
	commentRepo         commentRepo.CommentRepository
	materialRepo        materialRepo.MaterialRepository
	notificationService notifService.NotificationService
	router              *realtime.Router
	redisClient         *redis.Client
	locks               *keylock.KeyLock
}

func NewCommentService(commentRepo commentRepo.CommentRepository, materialRepo materialRepo.MaterialRepository, notificationService notifService.NotificationService, router *realtime.Router, redisClient *redis.Client, locks *keylock.KeyLock) CommentService {
	return &commentService{
		commentRepo:         commentRepo,
		materialRepo:        materialRepo,
		notificationService: notificationService,
		router:              router,
		redisClient:         redisClient,
		locks:               locks,
	}
}

func (s *commentService) CreateComment(ctx context.Context, userID, materialID uuid.UUID, req commentDto.CreateCommentRequest) (*commentDto.CommentResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is required", apperror.ErrInvalidInput)
	}
	if len([]rune(text)) > maxCommentLength {
		return nil, fmt.Errorf("%w: comment text exceeds %d characters", apperror.ErrInvalidInput, maxCommentLength)
	}

	// Comment cooldown
	commentLimit := ratelimiter.GetDurationFromEnv("RATE_LIMIT_COMMENT", 10*time.Second)
	allowed, err := ratelimiter.CheckAndSetRateLimit(ctx, s.redisClient, userID, "comment", commentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		ttl, _ := ratelimiter.GetRateLimitTTL(ctx, s.redisClient, userID, "comment")
		return nil, &ratelimiter.RateLimitError{
			Message:    fmt.Sprintf("you are commenting too fast. Please wait %.0f seconds", ttl.Seconds()),
			RetryAfter: ttl,
		}
	}

	unlock := s.locks.Lock(materialID.String())
	defer unlock()

	material, err := s.materialRepo.FindActiveByID(ctx, materialID)
	if err != nil {
		_ = ratelimiter.ClearRateLimit(ctx, s.redisClient, userID, "comment")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	comment := &entity.Comment{
		MaterialID: materialID,
		UserID:     userID,
		Text:       text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		_ = ratelimiter.ClearRateLimit(ctx, s.redisClient, userID, "comment")
		return nil, err
	}

	// Reload for the author association
	if loaded, err := s.commentRepo.FindByID(ctx, comment.ID); err == nil {
		comment = loaded
	}

	resp := s.mapToResponse(ctx, comment, &userID)

	go func() {
		bg := context.Background()

		if s.notificationService != nil {
			s.notificationService.DispatchCommentNotifications(bg, material, comment, userID)
		}

		if s.router != nil {
			s.router.Publish(bg, realtime.MaterialRoom(materialID), realtime.EventCommentAdded, resp)
		}
	}()

	return resp, nil
}

func (s *commentService) ToggleReaction(ctx context.Context, userID, commentID uuid.UUID, kind string) (*commentDto.ReactionStateResponse, error) {
	if kind != entity.ReactionLike && kind != entity.ReactionDislike {
		return nil, fmt.Errorf("%w: reaction must be like or dislike", apperror.ErrInvalidInput)
	}

	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	unlock := s.locks.Lock(comment.MaterialID.String())
	defer unlock()

	// The parent must still be visible; reactions on comments of
	// soft-deleted or unapproved materials are rejected as not found.
	if _, err := s.materialRepo.FindActiveByID(ctx, comment.MaterialID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if _, _, err := s.commentRepo.ToggleReaction(ctx, commentID, userID, kind); err != nil {
		return nil, err
	}

	likes, dislikes, err := s.commentRepo.ReactionCounts(ctx, commentID)
	if err != nil {
		return nil, err
	}
	userReaction, err := s.commentRepo.UserReaction(ctx, commentID, userID)
	if err != nil {
		return nil, err
	}

	return &commentDto.ReactionStateResponse{
		CommentID:    commentID,
		Likes:        likes,
		Dislikes:     dislikes,
		UserReaction: userReaction,
	}, nil
}

func (s *commentService) GetByMaterialID(ctx context.Context, materialID uuid.UUID, userID *uuid.UUID) ([]*commentDto.CommentResponse, error) {
	if _, err := s.materialRepo.FindActiveByID(ctx, materialID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	comments, err := s.commentRepo.FindByMaterialID(ctx, materialID)
	if err != nil {
		return nil, err
	}

	responses := make([]*commentDto.CommentResponse, 0, len(comments))
	for _, c := range comments {
		responses = append(responses, s.mapToResponse(ctx, c, userID))
	}
	return responses, nil
}

func (s *commentService) mapToResponse(ctx context.Context, comment *entity.Comment, userID *uuid.UUID) *commentDto.CommentResponse {
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
		if userID != nil && r.UserID == *userID {
			resp.UserReaction = r.Kind
		}
	}

	return resp
}
