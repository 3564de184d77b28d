package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/edushare/edushare-backend/internal/entity"
	commentDto "github.com/edushare/edushare-backend/internal/modules/comment/dto"
	commentRepo "github.com/edushare/edushare-backend/internal/modules/comment/repository"
	materialRepo "github.com/edushare/edushare-backend/internal/modules/material/repository"
	"github.com/edushare/edushare-backend/pkg/apperror"
	"github.com/edushare/edushare-backend/pkg/keylock"
	"github.com/edushare/edushare-backend/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
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
		&entity.MaterialRating{},
		&entity.Favorite{},
		&entity.Comment{},
		&entity.CommentReaction{},
		&entity.Report{},
		&entity.Notification{},
	))
	return db
}

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
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

func newTestMaterial(t *testing.T, db *gorm.DB, author *entity.User) *entity.Material {
	t.Helper()
	material := &entity.Material{
		UserID:     author.ID,
		Title:      "linear algebra notes",
		FileURL:    "https://files.example.com/la.pdf",
		FileName:   "la.pdf",
		IsActive:   true,
		IsApproved: true,
	}
	material.SetBreakdown([5]int{})
	require.NoError(t, db.Create(material).Error)
	return material
}

func newCommentService(t *testing.T, db *gorm.DB) CommentService {
	t.Helper()
	return NewCommentService(
		commentRepo.NewCommentRepository(db),
		materialRepo.NewMaterialRepository(db),
		nil,
		nil,
		setupRedis(t),
		keylock.New(),
	)
}

func TestCreateComment(t *testing.T) {
	db := setupDB(t)
	svc := newCommentService(t, db)
	ctx := context.Background()

	author := newTestUser(t, db, "author")
	commenter := newTestUser(t, db, "commenter")
	material := newTestMaterial(t, db, author)

	resp, err := svc.CreateComment(ctx, commenter.ID, material.ID, commentDto.CreateCommentRequest{
		Text: "  very helpful, thanks  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "very helpful, thanks", resp.Text)
	assert.Equal(t, commenter.ID, resp.User.ID)
	assert.Equal(t, "commenter", resp.User.Username)
}

func TestCreateComment_Validation(t *testing.T) {
	db := setupDB(t)
	svc := newCommentService(t, db)
	ctx := context.Background()

	author := newTestUser(t, db, "author")
	commenter := newTestUser(t, db, "commenter")
	material := newTestMaterial(t, db, author)

	_, err := svc.CreateComment(ctx, commenter.ID, material.ID, commentDto.CreateCommentRequest{Text: "   "})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = svc.CreateComment(ctx, commenter.ID, material.ID, commentDto.CreateCommentRequest{
		Text: strings.Repeat("a", 1001),
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = svc.CreateComment(ctx, commenter.ID, uuid.New(), commentDto.CreateCommentRequest{Text: "hi"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCreateComment_Cooldown(t *testing.T) {
	db := setupDB(t)
	svc := newCommentService(t, db)
	ctx := context.Background()

	author := newTestUser(t, db, "author")
	fast := newTestUser(t, db, "fast")
	other := newTestUser(t, db, "other")
	material := newTestMaterial(t, db, author)

	_, err := svc.CreateComment(ctx, fast.ID, material.ID, commentDto.CreateCommentRequest{Text: "first"})
	require.NoError(t, err)

	_, err = svc.CreateComment(ctx, fast.ID, material.ID, commentDto.CreateCommentRequest{Text: "second"})
	var rateErr *ratelimiter.RateLimitError
	assert.ErrorAs(t, err, &rateErr)

	// The cooldown is per user, not per material.
	_, err = svc.CreateComment(ctx, other.ID, material.ID, commentDto.CreateCommentRequest{Text: "unrelated"})
	assert.NoError(t, err)
}

func TestToggleReaction_Lifecycle(t *testing.T) {
	db := setupDB(t)
	svc := newCommentService(t, db)
	ctx := context.Background()

	author := newTestUser(t, db, "author")
	commenter := newTestUser(t, db, "commenter")
	reactor := newTestUser(t, db, "reactor")
	material := newTestMaterial(t, db, author)

	created, err := svc.CreateComment(ctx, commenter.ID, material.ID, commentDto.CreateCommentRequest{Text: "nice"})
	require.NoError(t, err)

	// like
	state, err := svc.ToggleReaction(ctx, reactor.ID, created.ID, entity.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.Likes)
	assert.Equal(t, int64(0), state.Dislikes)
	assert.Equal(t, entity.ReactionLike, state.UserReaction)

	// like again: undo
	state, err = svc.ToggleReaction(ctx, reactor.ID, created.ID, entity.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.Likes)
	assert.Empty(t, state.UserReaction)

	// like then dislike: replaced, never both
	_, err = svc.ToggleReaction(ctx, reactor.ID, created.ID, entity.ReactionLike)
	require.NoError(t, err)
	state, err = svc.ToggleReaction(ctx, reactor.ID, created.ID, entity.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.Likes)
	assert.Equal(t, int64(1), state.Dislikes)
	assert.Equal(t, entity.ReactionDislike, state.UserReaction)

	var rows []entity.CommentReaction
	require.NoError(t, db.Where("comment_id = ?", created.ID).Find(&rows).Error)
	require.Len(t, rows, 1, "a user holds at most one reaction per comment")
}

func TestToggleReaction_IndependentUsers(t *testing.T) {
	db := setupDB(t)
	svc := newCommentService(t, db)
	ctx := context.Background()

	author := newTestUser(t, db, "author")
	commenter := newTestUser(t, db, "commenter")
	u1 := newTestUser(t, db, "u1")
	u2 := newTestUser(t, db, "u2")
	material := newTestMaterial(t, db, author)

	created, err := svc.CreateComment(ctx, commenter.ID, material.ID, commentDto.CreateCommentRequest{Text: "hm"})
	require.NoError(t, err)

	_, err = svc.ToggleReaction(ctx, u1.ID, created.ID, entity.ReactionLike)
	require.NoError(t, err)
	state, err := svc.ToggleReaction(ctx, u2.ID, created.ID, entity.ReactionDislike)
	require.NoError(t, err)

	assert.Equal(t, int64(1), state.Likes)
	assert.Equal(t, int64(1), state.Dislikes)
	assert.Equal(t, entity.ReactionDislike, state.UserReaction)
}

func TestToggleReaction_Errors(t *testing.T) {
	db := setupDB(t)
	svc := newCommentService(t, db)
	ctx := context.Background()

	author := newTestUser(t, db, "author")
	reactor := newTestUser(t, db, "reactor")
	material := newTestMaterial(t, db, author)

	_, err := svc.ToggleReaction(ctx, reactor.ID, uuid.New(), entity.ReactionLike)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	commenter := newTestUser(t, db, "commenter")
	created, err := svc.CreateComment(ctx, commenter.ID, material.ID, commentDto.CreateCommentRequest{Text: "x"})
	require.NoError(t, err)

	_, err = svc.ToggleReaction(ctx, reactor.ID, created.ID, "love")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	// Reactions on comments of a hidden material read as not found.
	require.NoError(t, db.Model(&entity.Material{}).Where("id = ?", material.ID).Update("is_active", false).Error)
	_, err = svc.ToggleReaction(ctx, reactor.ID, created.ID, entity.ReactionLike)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetByMaterialID_OrderedWithCounts(t *testing.T) {
	db := setupDB(t)
	svc := newCommentService(t, db)
	ctx := context.Background()

	author := newTestUser(t, db, "author")
	a := newTestUser(t, db, "a")
	b := newTestUser(t, db, "b")
	material := newTestMaterial(t, db, author)

	first, err := svc.CreateComment(ctx, a.ID, material.ID, commentDto.CreateCommentRequest{Text: "first"})
	require.NoError(t, err)
	second, err := svc.CreateComment(ctx, b.ID, material.ID, commentDto.CreateCommentRequest{Text: "second"})
	require.NoError(t, err)

	_, err = svc.ToggleReaction(ctx, b.ID, first.ID, entity.ReactionLike)
	require.NoError(t, err)

	comments, err := svc.GetByMaterialID(ctx, material.ID, &b.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)

	assert.Equal(t, first.ID, comments[0].ID)
	assert.Equal(t, second.ID, comments[1].ID)
	assert.Equal(t, int64(1), comments[0].Likes)
	assert.Equal(t, entity.ReactionLike, comments[0].UserReaction)
	assert.Empty(t, comments[1].UserReaction)
}
