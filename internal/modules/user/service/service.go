package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/edushare/edushare-backend/internal/entity"
	ratingService "github.com/edushare/edushare-backend/internal/modules/rating/service"
	userDto "github.com/edushare/edushare-backend/internal/modules/user/dto"
	userRepo "github.com/edushare/edushare-backend/internal/modules/user/repository"
	"github.com/edushare/edushare-backend/pkg/apperror"
	"github.com/edushare/edushare-backend/pkg/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 72 * time.Hour

type UserService interface {
	Register(ctx context.Context, req userDto.RegisterRequest) (*userDto.AuthResponse, error)
	Login(ctx context.Context, req userDto.LoginRequest) (*userDto.AuthResponse, error)
	// GetProfile returns a user's public profile. When the viewer is the
	// owner, preferences are included and the stored reputation is
	// recomputed first, repairing any drift from missed async updates.
	GetProfile(ctx context.Context, userID uuid.UUID, self bool) (*userDto.UserProfileResponse, error)
	UpdatePreferences(ctx context.Context, userID uuid.UUID, req userDto.UpdatePreferencesRequest) (*userDto.PreferencesResponse, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, file io.Reader, fileName string) (*userDto.UserProfileResponse, error)
}

type userService struct {
	userRepo      userRepo.UserRepository
	ratingService ratingService.RatingService
	fileStorage   storage.FileStorage
}

func NewUserService(userRepo userRepo.UserRepository, ratingService ratingService.RatingService, fileStorage storage.FileStorage) UserService {
	return &userService{
		userRepo:      userRepo,
		ratingService: ratingService,
		fileStorage:   fileStorage,
	}
}

func (s *userService) Register(ctx context.Context, req userDto.RegisterRequest) (*userDto.AuthResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username is already taken", apperror.ErrBadRequest)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email is already registered", apperror.ErrBadRequest)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Username:              username,
		Email:                 email,
		PasswordHash:          string(hash),
		Role:                  entity.RoleStudent,
		NotifyRating:          true,
		NotifyCommentOwn:      true,
		NotifyCommentFavorite: true,
		NotifyReport:          true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.authResponse(user)
}

func (s *userService) Login(ctx context.Context, req userDto.LoginRequest) (*userDto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", apperror.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", apperror.ErrUnauthorized)
	}

	return s.authResponse(user)
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID, self bool) (*userDto.UserProfileResponse, error) {
	if self && s.ratingService != nil {
		if _, err := s.ratingService.RecalcReputation(ctx, userID); err != nil {
			log.Printf("user: failed to recalc reputation for %s: %v", userID, err)
		}
	}

	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	resp := s.mapProfile(user, self)
	return &resp, nil
}

func (s *userService) UpdatePreferences(ctx context.Context, userID uuid.UUID, req userDto.UpdatePreferencesRequest) (*userDto.PreferencesResponse, error) {
	updates := map[string]any{}
	if req.NotifyRating != nil {
		updates["notify_rating"] = *req.NotifyRating
	}
	if req.NotifyCommentOwn != nil {
		updates["notify_comment_own"] = *req.NotifyCommentOwn
	}
	if req.NotifyCommentFavorite != nil {
		updates["notify_comment_favorite"] = *req.NotifyCommentFavorite
	}
	if req.NotifyReport != nil {
		updates["notify_report"] = *req.NotifyReport
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no preferences given", apperror.ErrInvalidInput)
	}

	if err := s.userRepo.UpdatePreferences(ctx, userID, updates); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		return nil, err
	}

	return &userDto.PreferencesResponse{
		NotifyRating:          user.NotifyRating,
		NotifyCommentOwn:      user.NotifyCommentOwn,
		NotifyCommentFavorite: user.NotifyCommentFavorite,
		NotifyReport:          user.NotifyReport,
	}, nil
}

func (s *userService) UpdateAvatar(ctx context.Context, userID uuid.UUID, file io.Reader, fileName string) (*userDto.UserProfileResponse, error) {
	if file == nil || fileName == "" {
		return nil, fmt.Errorf("%w: avatar file is required", apperror.ErrInvalidInput)
	}

	user, err := s.userRepo.FindByID(ctx, userID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	avatarURL, err := s.fileStorage.UploadFile(ctx, file, "avatars", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	if user.AvatarURL != nil && *user.AvatarURL != "" {
		if err := s.fileStorage.DeleteFile(ctx, *user.AvatarURL); err != nil {
			log.Printf("user: failed to delete old avatar for %s: %v", userID, err)
		}
	}

	user.AvatarURL = &avatarURL
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	resp := s.mapProfile(user, true)
	return &resp, nil
}

func (s *userService) authResponse(user *entity.User) (*userDto.AuthResponse, error) {
	token, err := generateToken(user)
	if err != nil {
		return nil, err
	}
	return &userDto.AuthResponse{
		Token: token,
		User:  s.mapProfile(user, true),
	}, nil
}

func (s *userService) mapProfile(user *entity.User, self bool) userDto.UserProfileResponse {
	resp := userDto.UserProfileResponse{
		ID:          user.ID,
		Username:    user.Username,
		Role:        user.Role,
		AvatarURL:   user.AvatarURL,
		Reputation:  user.Reputation,
		UploadCount: user.UploadCount,
		CreatedAt:   user.CreatedAt,
	}
	if self {
		resp.Email = user.Email
		resp.Preferences = &userDto.PreferencesResponse{
			NotifyRating:          user.NotifyRating,
			NotifyCommentOwn:      user.NotifyCommentOwn,
			NotifyCommentFavorite: user.NotifyCommentFavorite,
			NotifyReport:          user.NotifyReport,
		}
	}
	return resp
}

func generateToken(user *entity.User) (string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", fmt.Errorf("JWT_SECRET is not configured")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
