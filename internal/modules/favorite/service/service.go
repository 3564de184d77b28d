package service

import (
	"context"
	"errors"

	favoriteDto "github.com/edushare/edushare-backend/internal/modules/favorite/dto"
	favoriteRepo "github.com/edushare/edushare-backend/internal/modules/favorite/repository"
	materialRepo "github.com/edushare/edushare-backend/internal/modules/material/repository"
	notifService "github.com/edushare/edushare-backend/internal/modules/notification/service"
	"github.com/edushare/edushare-backend/pkg/apperror"
	pkgDto "github.com/edushare/edushare-backend/pkg/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FavoriteService interface {
	// Toggle adds or removes the material from the user's favorites. Adding
	// notifies the author; removing is silent.
	Toggle(ctx context.Context, userID, materialID uuid.UUID) (favorited bool, err error)
	List(ctx context.Context, userID uuid.UUID, page, limit int) (*favoriteDto.FavoriteListResponse, error)
}

type favoriteService struct {
	favoriteRepo        favoriteRepo.FavoriteRepository
	materialRepo        materialRepo.MaterialRepository
	notificationService notifService.NotificationService
}

func NewFavoriteService(favoriteRepo favoriteRepo.FavoriteRepository, materialRepo materialRepo.MaterialRepository, notificationService notifService.NotificationService) FavoriteService {
	return &favoriteService{
		favoriteRepo:        favoriteRepo,
		materialRepo:        materialRepo,
		notificationService: notificationService,
	}
}

func (s *favoriteService) Toggle(ctx context.Context, userID, materialID uuid.UUID) (bool, error) {
	material, err := s.materialRepo.FindActiveByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperror.ErrNotFound
		}
		return false, err
	}

	favorited, err := s.favoriteRepo.Toggle(ctx, userID, materialID)
	if err != nil {
		return false, err
	}

	if favorited {
		go func() {
			if s.notificationService != nil {
				s.notificationService.DispatchFavoriteNotification(context.Background(), material, userID)
			}
		}()
	}

	return favorited, nil
}

func (s *favoriteService) List(ctx context.Context, userID uuid.UUID, page, limit int) (*favoriteDto.FavoriteListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	favorites, total, err := s.favoriteRepo.FindByUserID(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	items := make([]*favoriteDto.FavoriteItem, 0, len(favorites))
	for _, f := range favorites {
		items = append(items, &favoriteDto.FavoriteItem{
			MaterialID:    f.MaterialID,
			Title:         f.Material.Title,
			Subject:       f.Material.Subject,
			MaterialType:  f.Material.MaterialType,
			AuthorName:    f.Material.User.Username,
			RatingAverage: f.Material.RatingAverage,
			FavoritedAt:   f.CreatedAt,
		})
	}

	return &favoriteDto.FavoriteListResponse{
		Favorites:  items,
		Pagination: pkgDto.NewPagination(page, limit, total),
	}, nil
}
