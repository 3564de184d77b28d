package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/edushare/edushare-backend/internal/entity"
	catalogRepo "github.com/edushare/edushare-backend/internal/modules/catalog/repository"
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

	require.NoError(t, db.AutoMigrate(&entity.CatalogItem{}))
	return db
}

func newCatalogService(t *testing.T, db *gorm.DB) CatalogService {
	t.Helper()
	return NewCatalogService(catalogRepo.NewCatalogRepository(db))
}

func TestCatalog_AddAndListByKind(t *testing.T) {
	db := setupDB(t)
	svc := newCatalogService(t, db)
	ctx := context.Background()

	_, err := svc.Add(ctx, entity.CatalogYear, "2026")
	require.NoError(t, err)
	_, err = svc.Add(ctx, entity.CatalogYear, "2025")
	require.NoError(t, err)
	_, err = svc.Add(ctx, entity.CatalogMaterialType, "notes")
	require.NoError(t, err)

	years, err := svc.ListByKind(ctx, entity.CatalogYear)
	require.NoError(t, err)
	require.Len(t, years, 2)
	assert.Equal(t, "2025", years[0].Value)
	assert.Equal(t, "2026", years[1].Value)

	types, err := svc.ListByKind(ctx, entity.CatalogMaterialType)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "notes", types[0].Value)
}

func TestCatalog_Validation(t *testing.T) {
	db := setupDB(t)
	svc := newCatalogService(t, db)
	ctx := context.Background()

	_, err := svc.Add(ctx, "color", "blue")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = svc.Add(ctx, entity.CatalogYear, "   ")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = svc.ListByKind(ctx, "color")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestCatalog_Remove(t *testing.T) {
	db := setupDB(t)
	svc := newCatalogService(t, db)
	ctx := context.Background()

	item, err := svc.Add(ctx, entity.CatalogMaterialType, "slides")
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, item.ID))

	items, err := svc.ListByKind(ctx, entity.CatalogMaterialType)
	require.NoError(t, err)
	assert.Empty(t, items)

	// Removing an absent id is a no-op.
	require.NoError(t, svc.Remove(ctx, uuid.New()))
}
