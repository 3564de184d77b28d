package service

import (
	"log"

	"github.com/edushare/edushare-backend/internal/entity"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const materialsIndex = "materials"

// SearchService keeps the Meilisearch materials index in sync. Index writes
// are best-effort at call sites: a failed index never fails the upload or
// deletion that triggered it.
type SearchService interface {
	IndexMaterial(material *entity.Material) error
	DeleteMaterial(id string) error
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *searchService) initIndexes() {
	filterableAttrs := []string{"subject", "material_type", "year"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	if _, err := s.client.Index(materialsIndex).UpdateFilterableAttributes(&filterableInterface); err != nil {
		log.Printf("Failed to update materials filterable attributes: %v", err)
	}

	sortableAttrs := []string{"created_at", "views", "rating_average"}
	if _, err := s.client.Index(materialsIndex).UpdateSortableAttributes(&sortableAttrs); err != nil {
		log.Printf("Failed to update materials sortable attributes: %v", err)
	}
}

func (s *searchService) IndexMaterial(material *entity.Material) error {
	doc := map[string]any{
		"id":             material.ID.String(),
		"title":          s.sanitizer.Sanitize(material.Title),
		"description":    s.sanitizer.Sanitize(material.Description),
		"subject":        material.Subject,
		"material_type":  material.MaterialType,
		"year":           material.Year,
		"author":         material.User.Username,
		"views":          material.Views,
		"rating_average": material.RatingAverage,
		"created_at":     material.CreatedAt.Unix(),
	}

	_, err := s.client.Index(materialsIndex).AddDocuments([]map[string]any{doc}, nil)
	return err
}

func (s *searchService) DeleteMaterial(id string) error {
	_, err := s.client.Index(materialsIndex).DeleteDocument(id)
	return err
}
