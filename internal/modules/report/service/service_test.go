package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/edushare/edushare-backend/internal/entity"
	commentRepo "github.com/edushare/edushare-backend/internal/modules/comment/repository"
	favoriteRepo "github.com/edushare/edushare-backend/internal/modules/favorite/repository"
	materialRepo "github.com/edushare/edushare-backend/internal/modules/material/repository"
	materialService "github.com/edushare/edushare-backend/internal/modules/material/service"
	ratingRepo "github.com/edushare/edushare-backend/internal/modules/rating/repository"
	ratingService "github.com/edushare/edushare-backend/internal/modules/rating/service"
	reportRepo "github.com/edushare/edushare-backend/internal/modules/report/repository"
	userRepo "github.com/edushare/edushare-backend/internal/modules/user/repository"
	"github.com/edushare/edushare-backend/pkg/apperror"
	"github.com/edushare/edushare-backend/pkg/keylock"
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

func newTestUser(t *testing.T, db *gorm.DB, username, role string) *entity.User {
	t.Helper()
	user := &entity.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
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
		FileName:   title + ".pdf",
		IsActive:   true,
		IsApproved: true,
	}
	material.SetBreakdown([5]int{})
	require.NoError(t, db.Create(material).Error)
	return material
}

func newTestComment(t *testing.T, db *gorm.DB, material *entity.Material, user *entity.User, text string) *entity.Comment {
	t.Helper()
	comment := &entity.Comment{
		MaterialID: material.ID,
		UserID:     user.ID,
		Text:       text,
	}
	require.NoError(t, db.Create(comment).Error)
	return comment
}

func newReportService(t *testing.T, db *gorm.DB) ReportService {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	locks := keylock.New()
	users := userRepo.NewUserRepository(db)
	materials := materialRepo.NewMaterialRepository(db)
	ratings := ratingRepo.NewRatingRepository(db)
	favorites := favoriteRepo.NewFavoriteRepository(db)

	ratingSvc := ratingService.NewRatingService(ratings, materials, users, nil, nil, locks)
	materialSvc := materialService.NewMaterialService(materials, users, ratings, favorites, ratingSvc, nil, nil, nil, redisClient)

	return NewReportService(
		reportRepo.NewReportRepository(db),
		materials,
		commentRepo.NewCommentRepository(db),
		materialSvc,
		nil,
		locks,
	)
}

func TestReportMaterial_DuplicateRejected(t *testing.T) {
	db := setupDB(t)
	svc := newReportService(t, db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent)
	reporter := newTestUser(t, db, "reporter", entity.RoleStudent)
	other := newTestUser(t, db, "other", entity.RoleStudent)
	material := newTestMaterial(t, db, author, "spammy")

	first, err := svc.ReportMaterial(ctx, reporter.ID, material.ID, "plagiarized content")
	require.NoError(t, err)
	assert.Nil(t, first.CommentID)

	_, err = svc.ReportMaterial(ctx, reporter.ID, material.ID, "still plagiarized")
	assert.ErrorIs(t, err, apperror.ErrDuplicateReport)

	// A different reporter is a different report.
	_, err = svc.ReportMaterial(ctx, other.ID, material.ID, "same plagiarism here")
	assert.NoError(t, err)
}

func TestReportScopes_AreIndependent(t *testing.T) {
	db := setupDB(t)
	svc := newReportService(t, db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent)
	reporter := newTestUser(t, db, "reporter", entity.RoleStudent)
	material := newTestMaterial(t, db, author, "mixed")
	comment := newTestComment(t, db, material, author, "rude remark")

	_, err := svc.ReportMaterial(ctx, reporter.ID, material.ID, "corrupted bad file")
	require.NoError(t, err)

	// Reporting a comment of the same material is a separate target.
	resp, err := svc.ReportComment(ctx, reporter.ID, comment.ID, "rude language")
	require.NoError(t, err)
	require.NotNil(t, resp.CommentID)
	assert.Equal(t, comment.ID, *resp.CommentID)

	// But the same comment twice is a duplicate.
	_, err = svc.ReportComment(ctx, reporter.ID, comment.ID, "still rude")
	assert.ErrorIs(t, err, apperror.ErrDuplicateReport)
}

func TestReport_Validation(t *testing.T) {
	db := setupDB(t)
	svc := newReportService(t, db)
	ctx := context.Background()

	reporter := newTestUser(t, db, "reporter", entity.RoleStudent)

	_, err := svc.ReportMaterial(ctx, reporter.ID, uuid.New(), "target is gone")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.ReportComment(ctx, reporter.ID, uuid.New(), "target is gone")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	author := newTestUser(t, db, "author", entity.RoleStudent)
	material := newTestMaterial(t, db, author, "fine")
	_, err = svc.ReportMaterial(ctx, reporter.ID, material.ID, "   ")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	// Nine runes after trimming is one short of the floor.
	_, err = svc.ReportMaterial(ctx, reporter.ID, material.ID, " too short ")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = svc.ReportMaterial(ctx, reporter.ID, material.ID, strings.Repeat("a", 501))
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestResolve_Ignore_KeepsContent(t *testing.T) {
	db := setupDB(t)
	svc := newReportService(t, db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent)
	reporter := newTestUser(t, db, "reporter", entity.RoleStudent)
	material := newTestMaterial(t, db, author, "disputed")

	resp, err := svc.ReportMaterial(ctx, reporter.ID, material.ID, "i dislike it")
	require.NoError(t, err)

	require.NoError(t, svc.Resolve(ctx, resp.ID, entity.ReportActionIgnore))

	var materials int64
	require.NoError(t, db.Model(&entity.Material{}).Where("id = ?", material.ID).Count(&materials).Error)
	assert.Equal(t, int64(1), materials, "ignore must keep the material")

	var reports int64
	require.NoError(t, db.Model(&entity.Report{}).Count(&reports).Error)
	assert.Equal(t, int64(0), reports, "resolving removes the report")
}

func TestResolve_DeleteCommentReport(t *testing.T) {
	db := setupDB(t)
	svc := newReportService(t, db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent)
	reporter := newTestUser(t, db, "reporter", entity.RoleStudent)
	material := newTestMaterial(t, db, author, "with-comment")
	comment := newTestComment(t, db, material, author, "offensive text")
	keep := newTestComment(t, db, material, author, "fine comment")

	resp, err := svc.ReportComment(ctx, reporter.ID, comment.ID, "offensive text")
	require.NoError(t, err)

	require.NoError(t, svc.Resolve(ctx, resp.ID, entity.ReportActionDelete))

	var comments []entity.Comment
	require.NoError(t, db.Where("material_id = ?", material.ID).Find(&comments).Error)
	require.Len(t, comments, 1)
	assert.Equal(t, keep.ID, comments[0].ID)

	// The material itself survives a comment-scope delete.
	var materials int64
	require.NoError(t, db.Model(&entity.Material{}).Where("id = ?", material.ID).Count(&materials).Error)
	assert.Equal(t, int64(1), materials)

	var reports int64
	require.NoError(t, db.Model(&entity.Report{}).Count(&reports).Error)
	assert.Equal(t, int64(0), reports)
}

func TestResolve_DeleteMaterialReport_CascadesAndRepairsCount(t *testing.T) {
	db := setupDB(t)
	svc := newReportService(t, db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent)
	reporter := newTestUser(t, db, "reporter", entity.RoleStudent)
	rater := newTestUser(t, db, "rater", entity.RoleStudent)
	material := newTestMaterial(t, db, author, "doomed")
	newTestComment(t, db, material, rater, "a comment")

	require.NoError(t, db.Create(&entity.MaterialRating{
		MaterialID: material.ID,
		UserID:     rater.ID,
		Stars:      1,
	}).Error)
	require.NoError(t, db.Model(&entity.User{}).Where("id = ?", author.ID).Update("upload_count", 1).Error)

	resp, err := svc.ReportMaterial(ctx, reporter.ID, material.ID, "copyright violation")
	require.NoError(t, err)

	require.NoError(t, svc.Resolve(ctx, resp.ID, entity.ReportActionDelete))

	var materials, comments, ratings, reports int64
	require.NoError(t, db.Model(&entity.Material{}).Count(&materials).Error)
	require.NoError(t, db.Model(&entity.Comment{}).Count(&comments).Error)
	require.NoError(t, db.Model(&entity.MaterialRating{}).Count(&ratings).Error)
	require.NoError(t, db.Model(&entity.Report{}).Count(&reports).Error)
	assert.Zero(t, materials)
	assert.Zero(t, comments)
	assert.Zero(t, ratings)
	assert.Zero(t, reports)

	var storedAuthor entity.User
	require.NoError(t, db.First(&storedAuthor, "id = ?", author.ID).Error)
	assert.Equal(t, 0, storedAuthor.UploadCount)
}

func TestResolve_CountSelfHealsOnDrift(t *testing.T) {
	db := setupDB(t)
	svc := newReportService(t, db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent)
	reporter := newTestUser(t, db, "reporter", entity.RoleStudent)
	doomed := newTestMaterial(t, db, author, "doomed")
	newTestMaterial(t, db, author, "survivor")

	// Counter drifted to zero even though two materials exist.
	require.NoError(t, db.Model(&entity.User{}).Where("id = ?", author.ID).Update("upload_count", 0).Error)

	resp, err := svc.ReportMaterial(ctx, reporter.ID, doomed.ID, "bad material here")
	require.NoError(t, err)
	require.NoError(t, svc.Resolve(ctx, resp.ID, entity.ReportActionDelete))

	// The guarded decrement missed, so the count is rebuilt from the
	// materials table: one survivor left.
	var storedAuthor entity.User
	require.NoError(t, db.First(&storedAuthor, "id = ?", author.ID).Error)
	assert.Equal(t, 1, storedAuthor.UploadCount)
}

func TestResolve_Errors(t *testing.T) {
	db := setupDB(t)
	svc := newReportService(t, db)
	ctx := context.Background()

	err := svc.Resolve(ctx, uuid.New(), entity.ReportActionDelete)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	author := newTestUser(t, db, "author", entity.RoleStudent)
	reporter := newTestUser(t, db, "reporter", entity.RoleStudent)
	material := newTestMaterial(t, db, author, "x")
	resp, err := svc.ReportMaterial(ctx, reporter.ID, material.ID, "low quality upload")
	require.NoError(t, err)

	err = svc.Resolve(ctx, resp.ID, "archive")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestFeed_NewestFirstWithExcerpts(t *testing.T) {
	db := setupDB(t)
	svc := newReportService(t, db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent)
	reporter := newTestUser(t, db, "reporter", entity.RoleStudent)
	material := newTestMaterial(t, db, author, "feed material")
	comment := newTestComment(t, db, material, author, "questionable text")

	_, err := svc.ReportMaterial(ctx, reporter.ID, material.ID, "first report")
	require.NoError(t, err)
	_, err = svc.ReportComment(ctx, reporter.ID, comment.ID, "second report")
	require.NoError(t, err)

	feed, err := svc.Feed(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, feed.Reports, 2)
	assert.Equal(t, int64(2), feed.Total)
	assert.Equal(t, 1, feed.TotalPages)

	// Newest first: the comment report was filed last.
	assert.Equal(t, "second report", feed.Reports[0].Report.Reason)
	assert.Equal(t, "questionable text", feed.Reports[0].CommentExcerpt)
	assert.Equal(t, "feed material", feed.Reports[0].MaterialTitle)

	assert.Equal(t, "first report", feed.Reports[1].Report.Reason)
	assert.Empty(t, feed.Reports[1].CommentExcerpt)
}

func TestReportMaterial_ConcurrentDuplicatesCollapse(t *testing.T) {
	db := setupDB(t)
	svc := newReportService(t, db)
	ctx := context.Background()

	author := newTestUser(t, db, "author", entity.RoleStudent)
	reporter := newTestUser(t, db, "reporter", entity.RoleStudent)
	material := newTestMaterial(t, db, author, "contested")

	var filed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ReportMaterial(ctx, reporter.ID, material.ID, "spam content here")
			if err == nil {
				filed.Add(1)
				return
			}
			assert.ErrorIs(t, err, apperror.ErrDuplicateReport)
		}()
	}
	wg.Wait()

	// Exactly one racer wins; every other attempt sees the existing report.
	assert.EqualValues(t, 1, filed.Load())

	var count int64
	require.NoError(t, db.Model(&entity.Report{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
