package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/edushare/edushare-backend/internal/entity"
	catalogRepo "github.com/edushare/edushare-backend/internal/modules/catalog/repository"
	"github.com/edushare/edushare-backend/pkg/apperror"
	"github.com/google/uuid"
)

// CatalogService manages the admin-curated values offered in upload and
// filter dropdowns (academic years, material types).
type CatalogService interface {
	Add(ctx context.Context, kind, value string) (*entity.CatalogItem, error)
	ListByKind(ctx context.Context, kind string) ([]entity.CatalogItem, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	repo catalogRepo.CatalogRepository
}

func NewCatalogService(repo catalogRepo.CatalogRepository) CatalogService {
	return &catalogService{repo: repo}
}

func (s *catalogService) Add(ctx context.Context, kind, value string) (*entity.CatalogItem, error) {
	if kind != entity.CatalogYear && kind != entity.CatalogMaterialType {
		return nil, fmt.Errorf("%w: unknown catalog kind %q", apperror.ErrInvalidInput, kind)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: catalog value is required", apperror.ErrInvalidInput)
	}

	item := &entity.CatalogItem{Kind: kind, Value: value}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *catalogService) ListByKind(ctx context.Context, kind string) ([]entity.CatalogItem, error) {
	if kind != entity.CatalogYear && kind != entity.CatalogMaterialType {
		return nil, fmt.Errorf("%w: unknown catalog kind %q", apperror.ErrInvalidInput, kind)
	}
	return s.repo.FindByKind(ctx, kind)
}

func (s *catalogService) Remove(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
