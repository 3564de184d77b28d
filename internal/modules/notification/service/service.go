package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/edushare/edushare-backend/internal/entity"
	favoriteRepo "github.com/edushare/edushare-backend/internal/modules/favorite/repository"
	notifRepo "github.com/edushare/edushare-backend/internal/modules/notification/repository"
	userRepo "github.com/edushare/edushare-backend/internal/modules/user/repository"
	"github.com/edushare/edushare-backend/internal/realtime"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationService persists notifications and pushes them to the
// recipient's realtime room. The Dispatch* methods are invoked from detached
// goroutines after the triggering mutation commits: they log failures and
// never report them back, and a failed persist skips only that recipient,
// never its siblings.
type NotificationService interface {
	CreateNotification(ctx context.Context, notification *entity.Notification) error

	DispatchCommentNotifications(ctx context.Context, material *entity.Material, comment *entity.Comment, actorID uuid.UUID)
	DispatchRatingNotification(ctx context.Context, material *entity.Material, actorID uuid.UUID, stars int)
	DispatchReportNotifications(ctx context.Context, material *entity.Material, report *entity.Report)
	DispatchFavoriteNotification(ctx context.Context, material *entity.Material, actorID uuid.UUID)

	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type notificationService struct {
	repo         notifRepo.NotificationRepository
	userRepo     userRepo.UserRepository
	favoriteRepo favoriteRepo.FavoriteRepository
	router       *realtime.Router
}

func NewNotificationService(repo notifRepo.NotificationRepository, userRepo userRepo.UserRepository, favoriteRepo favoriteRepo.FavoriteRepository, router *realtime.Router) NotificationService {
	return &notificationService{
		repo:         repo,
		userRepo:     userRepo,
		favoriteRepo: favoriteRepo,
		router:       router,
	}
}

func (s *notificationService) CreateNotification(ctx context.Context, notification *entity.Notification) error {
	// 1. Save to DB
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	// 2. Push to the recipient's room
	if s.router != nil {
		s.router.Publish(ctx, realtime.UserRoom(notification.UserID), realtime.EventNotificationCreated, notification)
	}

	return nil
}

// DispatchCommentNotifications notifies the material's author and everyone
// who favorited the material, each behind their own preference flag. The
// commenter never hears about their own comment, and the author is excluded
// from the favorites pass so they are notified at most once.
func (s *notificationService) DispatchCommentNotifications(ctx context.Context, material *entity.Material, comment *entity.Comment, actorID uuid.UUID) {
	if material.UserID != actorID {
		author, err := s.userRepo.FindByID(ctx, material.UserID.String())
		if err != nil {
			log.Printf("notification: failed to load material author: %v", err)
		} else if author.NotifyCommentOwn {
			s.send(ctx, &entity.Notification{
				UserID:     author.ID,
				ActorID:    &actorID,
				MaterialID: material.ID,
				Type:       entity.NotificationComment,
				Message:    fmt.Sprintf("Someone commented on your material '%s'", material.Title),
				Metadata:   metadata(map[string]any{"material_title": material.Title, "comment_id": comment.ID}),
			})
		}
	}

	favIDs, err := s.favoriteRepo.UserIDsByMaterial(ctx, material.ID)
	if err != nil {
		log.Printf("notification: failed to list favorites for fan-out: %v", err)
		return
	}

	recipients := make([]uuid.UUID, 0, len(favIDs))
	for _, id := range favIDs {
		if id == actorID || id == material.UserID {
			continue
		}
		recipients = append(recipients, id)
	}

	users, err := s.userRepo.FindByIDs(ctx, recipients)
	if err != nil {
		log.Printf("notification: failed to load favorite users: %v", err)
		return
	}

	for _, u := range users {
		if !u.NotifyCommentFavorite {
			continue
		}
		s.send(ctx, &entity.Notification{
			UserID:     u.ID,
			ActorID:    &actorID,
			MaterialID: material.ID,
			Type:       entity.NotificationComment,
			Message:    fmt.Sprintf("New comment on '%s', a material you favorited", material.Title),
			Metadata:   metadata(map[string]any{"material_title": material.Title, "comment_id": comment.ID}),
		})
	}
}

// DispatchRatingNotification runs only for a user's first rating of the
// material; re-rates are silent.
func (s *notificationService) DispatchRatingNotification(ctx context.Context, material *entity.Material, actorID uuid.UUID, stars int) {
	if material.UserID == actorID {
		return
	}

	author, err := s.userRepo.FindByID(ctx, material.UserID.String())
	if err != nil {
		log.Printf("notification: failed to load material author: %v", err)
		return
	}
	if !author.NotifyRating {
		return
	}

	s.send(ctx, &entity.Notification{
		UserID:     author.ID,
		ActorID:    &actorID,
		MaterialID: material.ID,
		Type:       entity.NotificationRating,
		Message:    fmt.Sprintf("Someone rated your material '%s' %d stars", material.Title, stars),
		Metadata:   metadata(map[string]any{"material_title": material.Title, "stars": stars}),
	})
}

// DispatchReportNotifications fans out to every administrator whose report
// preference is on, regardless of any relation to the material. The
// reporting user is still never their own recipient.
func (s *notificationService) DispatchReportNotifications(ctx context.Context, material *entity.Material, report *entity.Report) {
	admins, err := s.userRepo.FindAdmins(ctx)
	if err != nil {
		log.Printf("notification: failed to list admins for report fan-out: %v", err)
		return
	}

	target := "material"
	if report.IsCommentReport() {
		target = "comment"
	}

	for _, admin := range admins {
		if admin.ID == report.ReporterID || !admin.NotifyReport {
			continue
		}
		s.send(ctx, &entity.Notification{
			UserID:     admin.ID,
			ActorID:    &report.ReporterID,
			MaterialID: material.ID,
			Type:       entity.NotificationReport,
			Message:    fmt.Sprintf("A %s on '%s' was reported: %s", target, material.Title, report.Reason),
			Metadata:   metadata(map[string]any{"report_id": report.ID, "target": target}),
		})
	}
}

func (s *notificationService) DispatchFavoriteNotification(ctx context.Context, material *entity.Material, actorID uuid.UUID) {
	if material.UserID == actorID {
		return
	}

	s.send(ctx, &entity.Notification{
		UserID:     material.UserID,
		ActorID:    &actorID,
		MaterialID: material.ID,
		Type:       entity.NotificationFavorite,
		Message:    fmt.Sprintf("Someone added your material '%s' to their favorites", material.Title),
		Metadata:   metadata(map[string]any{"material_title": material.Title}),
	})
}

// send persists and publishes one notification, logging instead of failing
// so one bad recipient cannot abort the rest of a fan-out batch.
func (s *notificationService) send(ctx context.Context, notification *entity.Notification) {
	if err := s.CreateNotification(ctx, notification); err != nil {
		log.Printf("notification: failed to deliver %s notification to %s: %v",
			notification.Type, notification.UserID, err)
	}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	return s.repo.GetByUserID(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.Delete(ctx, id, userID)
}

func metadata(m map[string]any) datatypes.JSON {
	raw, _ := json.Marshal(m)
	return datatypes.JSON(raw)
}
