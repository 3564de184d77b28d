package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/edushare/edushare-backend/internal/entity"
	favoriteRepo "github.com/edushare/edushare-backend/internal/modules/favorite/repository"
	materialRepo "github.com/edushare/edushare-backend/internal/modules/material/repository"
	"github.com/edushare/edushare-backend/pkg/apperror"
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
		&entity.CommentReaction{},
		&entity.MaterialRating{},
		&entity.Report{},
	))
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, username string) *entity.User {
	t.Helper()
	user := &entity.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         entity.RoleStudent,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newTestMaterial(t *testing.T, db *gorm.DB, author *entity.User, title string) *entity.Material {
	t.Helper()
	material := &entity.Material{
		UserID:     author.ID,
		Title:      title,
		FileURL:    "https://files.example.com/" + title + ".pdf",
		IsActive:   true,
		IsApproved: true,
	}
	require.NoError(t, db.Create(material).Error)
	return material
}

func newFavoriteService(db *gorm.DB) FavoriteService {
	return NewFavoriteService(
		favoriteRepo.NewFavoriteRepository(db),
		materialRepo.NewMaterialRepository(db),
		nil,
	)
}

func TestToggle(t *testing.T) {
	db := setupDB(t)
	svc := newFavoriteService(db)
	ctx := context.Background()

	author := newTestUser(t, db, "author")
	fan := newTestUser(t, db, "fan")
	material := newTestMaterial(t, db, author, "notes")

	favorited, err := svc.Toggle(ctx, fan.ID, material.ID)
	require.NoError(t, err)
	assert.True(t, favorited)

	favorited, err = svc.Toggle(ctx, fan.ID, material.ID)
	require.NoError(t, err)
	assert.False(t, favorited, "second toggle removes the favorite")

	var count int64
	require.NoError(t, db.Model(&entity.Favorite{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestToggle_MaterialMissingOrHidden(t *testing.T) {
	db := setupDB(t)
	svc := newFavoriteService(db)
	ctx := context.Background()

	fan := newTestUser(t, db, "fan")
	_, err := svc.Toggle(ctx, fan.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	author := newTestUser(t, db, "author")
	hidden := newTestMaterial(t, db, author, "hidden")
	require.NoError(t, db.Model(hidden).Update("is_active", false).Error)

	_, err = svc.Toggle(ctx, fan.ID, hidden.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestList(t *testing.T) {
	db := setupDB(t)
	svc := newFavoriteService(db)
	ctx := context.Background()

	author := newTestUser(t, db, "author")
	fan := newTestUser(t, db, "fan")
	m1 := newTestMaterial(t, db, author, "first")
	m2 := newTestMaterial(t, db, author, "second")

	_, err := svc.Toggle(ctx, fan.ID, m1.ID)
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, fan.ID, m2.ID)
	require.NoError(t, err)

	resp, err := svc.List(ctx, fan.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, resp.Favorites, 2)
	assert.Equal(t, int64(2), resp.Total)

	// Most recently favorited first.
	assert.Equal(t, m2.ID, resp.Favorites[0].MaterialID)
	assert.Equal(t, "second", resp.Favorites[0].Title)
	assert.Equal(t, "author", resp.Favorites[0].AuthorName)
}
