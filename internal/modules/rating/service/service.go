package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	materialRepo "github.com/edushare/edushare-backend/internal/modules/material/repository"
	notifService "github.com/edushare/edushare-backend/internal/modules/notification/service"
	ratingDto "github.com/edushare/edushare-backend/internal/modules/rating/dto"
	ratingRepo "github.com/edushare/edushare-backend/internal/modules/rating/repository"
	userRepo "github.com/edushare/edushare-backend/internal/modules/user/repository"
	"github.com/edushare/edushare-backend/internal/realtime"
	"github.com/edushare/edushare-backend/pkg/apperror"
	"github.com/edushare/edushare-backend/pkg/keylock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RatingService interface {
	// SubmitRating records or replaces the user's rating of a material and
	// returns the recomputed distribution. First-time ratings (not updates)
	// notify the author; either way the author's reputation is recomputed
	// asynchronously.
	SubmitRating(ctx context.Context, userID, materialID uuid.UUID, stars int) (*ratingDto.RatingSummaryResponse, error)

	// RecalcReputation recomputes a user's reputation from scratch. It is
	// idempotent and also called on demand (own profile view) to self-heal
	// drift from missed async runs.
	RecalcReputation(ctx context.Context, userID uuid.UUID) (float64, error)
}

type ratingService struct {
	ratingRepo          ratingRepo.RatingRepository
	materialRepo        materialRepo.MaterialRepository
	userRepo            userRepo.UserRepository
	notificationService notifService.NotificationService
	router              *realtime.Router
	locks               *keylock.KeyLock
}

func NewRatingService(ratingRepo ratingRepo.RatingRepository, materialRepo materialRepo.MaterialRepository, userRepo userRepo.UserRepository, notificationService notifService.NotificationService, router *realtime.Router, locks *keylock.KeyLock) RatingService {
	return &ratingService{
		ratingRepo:          ratingRepo,
		materialRepo:        materialRepo,
		userRepo:            userRepo,
		notificationService: notificationService,
		router:              router,
		locks:               locks,
	}
}

func (s *ratingService) SubmitRating(ctx context.Context, userID, materialID uuid.UUID, stars int) (*ratingDto.RatingSummaryResponse, error) {
	if stars < 1 || stars > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5 stars", apperror.ErrInvalidInput)
	}

	// All read-modify-write on one material is serialized here so concurrent
	// raters cannot interleave the distribution recompute.
	unlock := s.locks.Lock(materialID.String())
	defer unlock()

	material, err := s.materialRepo.FindActiveByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	summary, created, err := s.ratingRepo.Submit(ctx, materialID, userID, stars)
	if err != nil {
		return nil, err
	}

	resp := &ratingDto.RatingSummaryResponse{
		Average:    summary.Average,
		Count:      summary.Count,
		Breakdown:  summary.Breakdown,
		UserRating: stars,
	}

	// Side effects are detached: the response never waits on reputation,
	// notifications, or realtime fan-out, and their failures stay local.
	go func() {
		bg := context.Background()

		if _, err := s.RecalcReputation(bg, material.UserID); err != nil {
			log.Printf("rating: failed to recalc reputation for %s: %v", material.UserID, err)
		}

		if created && s.notificationService != nil {
			s.notificationService.DispatchRatingNotification(bg, material, userID, stars)
		}

		if s.router != nil {
			broadcast := ratingDto.RatingBroadcast{
				Average:   summary.Average,
				Count:     summary.Count,
				Breakdown: summary.Breakdown,
			}
			s.router.Publish(bg, realtime.MaterialRoom(materialID), realtime.EventRatingUpdated, broadcast)
		}
	}()

	return resp, nil
}

func (s *ratingService) RecalcReputation(ctx context.Context, userID uuid.UUID) (float64, error) {
	// Materials with zero ratings are excluded from the mean entirely, not
	// counted as zero. Switching that would shift every author's score.
	averages, err := s.materialRepo.ActiveAverages(ctx, userID)
	if err != nil {
		return 0, err
	}

	var reputation float64
	if len(averages) > 0 {
		var sum float64
		for _, avg := range averages {
			sum += avg
		}
		reputation = math.Round(sum/float64(len(averages))*100) / 100
	}

	if err := s.userRepo.UpdateReputation(ctx, userID, reputation); err != nil {
		return 0, err
	}

	return reputation, nil
}
