package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	materialRepo "github.com/edushare/edushare-backend/internal/modules/material/repository"
	"github.com/google/uuid"
)

// DefaultDedupWindow is how long repeat views from the same viewer of the
// same material are suppressed from the counter.
const DefaultDedupWindow = 30 * time.Second

// DedupCache is a process-wide map from (viewer, material) to the timestamp
// of the last counted view. It is a cache, not a ledger: losing it only
// causes extra view counts, and with multiple service instances each process
// dedups independently (a shared store would be needed to close that gap).
type DedupCache struct {
	mu        sync.Mutex
	entries   map[string]time.Time
	window    time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewDedupCache(window time.Duration) *DedupCache {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &DedupCache{
		entries:   make(map[string]time.Time),
		window:    window,
		retention: 2 * window,
		now:       time.Now,
	}
}

// ShouldCount reports whether this view should increment the counter, and
// records the new timestamp when it should. Each call also opportunistically
// sweeps entries past the retention horizon to bound memory; the sweep is a
// side effect, not a correctness requirement.
func (c *DedupCache) ShouldCount(viewerKey string, materialID uuid.UUID) bool {
	key := fmt.Sprintf("%s:%s", viewerKey, materialID)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, seen := range c.entries {
		if now.Sub(seen) > c.retention {
			delete(c.entries, k)
		}
	}

	if seen, ok := c.entries[key]; ok && now.Sub(seen) <= c.window {
		return false
	}

	c.entries[key] = now
	return true
}

// Len reports the number of live entries, for tests and debug endpoints.
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type ViewService interface {
	// RegisterView bumps the material's view counter unless the same viewer
	// was already counted inside the dedup window. Returns whether the
	// counter was incremented.
	RegisterView(ctx context.Context, materialID uuid.UUID, viewerKey string) (bool, error)
}

type viewService struct {
	cache        *DedupCache
	materialRepo materialRepo.MaterialRepository
}

func NewViewService(cache *DedupCache, materialRepo materialRepo.MaterialRepository) ViewService {
	return &viewService{
		cache:        cache,
		materialRepo: materialRepo,
	}
}

func (s *viewService) RegisterView(ctx context.Context, materialID uuid.UUID, viewerKey string) (bool, error) {
	if viewerKey == "" {
		return false, nil
	}

	if !s.cache.ShouldCount(viewerKey, materialID) {
		return false, nil
	}

	if err := s.materialRepo.IncrementViews(ctx, materialID); err != nil {
		return false, err
	}
	return true, nil
}
