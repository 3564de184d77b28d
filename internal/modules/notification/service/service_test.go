package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/edushare/edushare-backend/internal/entity"
	favoriteRepo "github.com/edushare/edushare-backend/internal/modules/favorite/repository"
	notifRepo "github.com/edushare/edushare-backend/internal/modules/notification/repository"
	userRepo "github.com/edushare/edushare-backend/internal/modules/user/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&entity.User{},
		&entity.Material{},
		&entity.Favorite{},
		&entity.Comment{},
		&entity.Report{},
		&entity.Notification{},
	))
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, username, role string, prefs func(*entity.User)) *entity.User {
	t.Helper()
	user := &entity.User{
		Username:              username,
		Email:                 username + "@example.com",
		PasswordHash:          "x",
		Role:                  role,
		NotifyRating:          true,
		NotifyCommentOwn:      true,
		NotifyCommentFavorite: true,
		NotifyReport:          true,
	}
	if prefs != nil {
		prefs(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newTestMaterial(t *testing.T, db *gorm.DB, author *entity.User) *entity.Material {
	t.Helper()
	material := &entity.Material{
		UserID:     author.ID,
		Title:      "shared notes",
		FileURL:    "https://files.example.com/n.pdf",
		IsActive:   true,
		IsApproved: true,
	}
	require.NoError(t, db.Create(material).Error)
	return material
}

func favorite(t *testing.T, db *gorm.DB, user *entity.User, material *entity.Material) {
	t.Helper()
	require.NoError(t, db.Create(&entity.Favorite{UserID: user.ID, MaterialID: material.ID}).Error)
}

func newService(db *gorm.DB) NotificationService {
	return NewNotificationService(
		notifRepo.NewNotificationRepository(db),
		userRepo.NewUserRepository(db),
		favoriteRepo.NewFavoriteRepository(db),
		nil,
	)
}

func notificationsFor(t *testing.T, db *gorm.DB, userID uuid.UUID) []entity.Notification {
	t.Helper()
	var rows []entity.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Find(&rows).Error)
	return rows
}

func TestDispatchCommentNotifications_AuthorAndFavoriters(t *testing.T) {
	db := setupDB(t)
	svc := newService(db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent, nil)
	commenter := newTestUser(t, db, "commenter", entity.RoleStudent, nil)
	fan := newTestUser(t, db, "fan", entity.RoleStudent, nil)
	material := newTestMaterial(t, db, author)
	favorite(t, db, fan, material)
	favorite(t, db, commenter, material) // commenter also favorited

	comment := &entity.Comment{MaterialID: material.ID, UserID: commenter.ID, Text: "nice"}
	require.NoError(t, db.Create(comment).Error)

	svc.DispatchCommentNotifications(ctx, material, comment, commenter.ID)

	authorRows := notificationsFor(t, db, author.ID)
	require.Len(t, authorRows, 1, "author notified exactly once")
	assert.Equal(t, entity.NotificationComment, authorRows[0].Type)
	require.NotNil(t, authorRows[0].ActorID)
	assert.Equal(t, commenter.ID, *authorRows[0].ActorID)

	assert.Len(t, notificationsFor(t, db, fan.ID), 1, "favoriter notified")
	assert.Empty(t, notificationsFor(t, db, commenter.ID), "actor never notified, even as favoriter")
}

func TestDispatchCommentNotifications_AuthorCommentsOwnMaterial(t *testing.T) {
	db := setupDB(t)
	svc := newService(db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent, nil)
	fan := newTestUser(t, db, "fan", entity.RoleStudent, nil)
	material := newTestMaterial(t, db, author)
	favorite(t, db, fan, material)
	favorite(t, db, author, material)

	comment := &entity.Comment{MaterialID: material.ID, UserID: author.ID, Text: "update"}
	require.NoError(t, db.Create(comment).Error)

	svc.DispatchCommentNotifications(ctx, material, comment, author.ID)

	assert.Empty(t, notificationsFor(t, db, author.ID), "no self-notification")
	assert.Len(t, notificationsFor(t, db, fan.ID), 1)
}

func TestDispatchCommentNotifications_PreferencesGate(t *testing.T) {
	db := setupDB(t)
	svc := newService(db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent, func(u *entity.User) {
		u.NotifyCommentOwn = false
	})
	mutedFan := newTestUser(t, db, "muted", entity.RoleStudent, func(u *entity.User) {
		u.NotifyCommentFavorite = false
	})
	fan := newTestUser(t, db, "fan", entity.RoleStudent, nil)
	commenter := newTestUser(t, db, "commenter", entity.RoleStudent, nil)
	material := newTestMaterial(t, db, author)
	favorite(t, db, mutedFan, material)
	favorite(t, db, fan, material)

	comment := &entity.Comment{MaterialID: material.ID, UserID: commenter.ID, Text: "hello"}
	require.NoError(t, db.Create(comment).Error)

	svc.DispatchCommentNotifications(ctx, material, comment, commenter.ID)

	assert.Empty(t, notificationsFor(t, db, author.ID), "author opted out")
	assert.Empty(t, notificationsFor(t, db, mutedFan.ID), "favoriter opted out")
	assert.Len(t, notificationsFor(t, db, fan.ID), 1, "opted-out siblings don't affect others")
}

func TestDispatchRatingNotification(t *testing.T) {
	db := setupDB(t)
	svc := newService(db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent, nil)
	rater := newTestUser(t, db, "rater", entity.RoleStudent, nil)
	material := newTestMaterial(t, db, author)

	svc.DispatchRatingNotification(ctx, material, rater.ID, 5)

	rows := notificationsFor(t, db, author.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, entity.NotificationRating, rows[0].Type)

	// Rating your own material is silent.
	svc.DispatchRatingNotification(ctx, material, author.ID, 3)
	assert.Len(t, notificationsFor(t, db, author.ID), 1)
}

func TestDispatchRatingNotification_PreferenceOff(t *testing.T) {
	db := setupDB(t)
	svc := newService(db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent, func(u *entity.User) {
		u.NotifyRating = false
	})
	rater := newTestUser(t, db, "rater", entity.RoleStudent, nil)
	material := newTestMaterial(t, db, author)

	svc.DispatchRatingNotification(ctx, material, rater.ID, 4)
	assert.Empty(t, notificationsFor(t, db, author.ID))
}

func TestDispatchReportNotifications_AdminsOnly(t *testing.T) {
	db := setupDB(t)
	svc := newService(db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent, nil)
	reporter := newTestUser(t, db, "reporter", entity.RoleStudent, nil)
	admin1 := newTestUser(t, db, "admin1", entity.RoleAdmin, nil)
	admin2 := newTestUser(t, db, "admin2", entity.RoleAdmin, nil)
	mutedAdmin := newTestUser(t, db, "admin3", entity.RoleAdmin, func(u *entity.User) {
		u.NotifyReport = false
	})
	material := newTestMaterial(t, db, author)

	report := &entity.Report{
		MaterialID: material.ID,
		ReporterID: reporter.ID,
		Reason:     "spam",
	}
	require.NoError(t, db.Create(report).Error)

	svc.DispatchReportNotifications(ctx, material, report)

	assert.Len(t, notificationsFor(t, db, admin1.ID), 1)
	assert.Len(t, notificationsFor(t, db, admin2.ID), 1)
	assert.Empty(t, notificationsFor(t, db, mutedAdmin.ID), "opted-out admin skipped")
	assert.Empty(t, notificationsFor(t, db, reporter.ID))
	assert.Empty(t, notificationsFor(t, db, author.ID), "plain users never see reports")
}

func TestDispatchReportNotifications_ReportingAdminExcluded(t *testing.T) {
	db := setupDB(t)
	svc := newService(db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent, nil)
	adminReporter := newTestUser(t, db, "adminrep", entity.RoleAdmin, nil)
	admin := newTestUser(t, db, "admin", entity.RoleAdmin, nil)
	material := newTestMaterial(t, db, author)

	report := &entity.Report{
		MaterialID: material.ID,
		ReporterID: adminReporter.ID,
		Reason:     "abuse",
	}
	require.NoError(t, db.Create(report).Error)

	svc.DispatchReportNotifications(ctx, material, report)

	assert.Empty(t, notificationsFor(t, db, adminReporter.ID), "an admin never hears about their own report")
	assert.Len(t, notificationsFor(t, db, admin.ID), 1)
}

func TestDispatchFavoriteNotification(t *testing.T) {
	db := setupDB(t)
	svc := newService(db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent, nil)
	fan := newTestUser(t, db, "fan", entity.RoleStudent, nil)
	material := newTestMaterial(t, db, author)

	svc.DispatchFavoriteNotification(ctx, material, fan.ID)

	rows := notificationsFor(t, db, author.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, entity.NotificationFavorite, rows[0].Type)

	// Favoriting your own material is silent.
	svc.DispatchFavoriteNotification(ctx, material, author.ID)
	assert.Len(t, notificationsFor(t, db, author.ID), 1)
}

func TestReadLifecycle(t *testing.T) {
	db := setupDB(t)
	svc := newService(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "owner", entity.RoleStudent, nil)
	stranger := newTestUser(t, db, "stranger", entity.RoleStudent, nil)
	material := newTestMaterial(t, db, owner)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.CreateNotification(ctx, &entity.Notification{
			UserID:     owner.ID,
			MaterialID: material.ID,
			Type:       entity.NotificationComment,
			Message:    fmt.Sprintf("notification %d", i),
		}))
	}

	count, err := svc.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	rows, err := svc.GetNotifications(ctx, owner.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// A stranger cannot mark someone else's notification as read.
	require.NoError(t, svc.MarkAsRead(ctx, rows[0].ID, stranger.ID))
	count, err = svc.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, svc.MarkAsRead(ctx, rows[0].ID, owner.ID))
	count, err = svc.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, svc.MarkAllAsRead(ctx, owner.ID))
	count, err = svc.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Delete is owner-scoped too.
	require.NoError(t, svc.Delete(ctx, rows[1].ID, stranger.ID))
	remaining, err := svc.GetNotifications(ctx, owner.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)

	require.NoError(t, svc.Delete(ctx, rows[1].ID, owner.ID))
	remaining, err = svc.GetNotifications(ctx, owner.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}
