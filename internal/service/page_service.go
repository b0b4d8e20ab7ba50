package service

import (
	"context"
	"time"

	"valour-site/internal/cache"
	"valour-site/internal/data"
)

// PageRepository defines the interface for database reads on pages.
type PageRepository interface {
	GetPageBySlug(ctx context.Context, slug string) (*data.Page, error)
	GetPagesBySlugs(ctx context.Context, slugs []string) (map[string]*data.Page, error)
	GetAllPages(ctx context.Context) ([]*data.Page, error)
}

// PageServicer defines the interface for reading slug-addressed pages.
type PageServicer interface {
	ViewPage(ctx context.Context, slug string) (*data.Page, error)
	ViewPages(ctx context.Context, slugs ...string) (map[string]*data.Page, error)
	GetAllPages(ctx context.Context) ([]*data.Page, error)
}

// AboutSlugs are the pages composed into the About page, in order.
var AboutSlugs = []string{"mission", "vision", "values", "cmta"}

const pageCacheTTL = 5 * time.Minute

// PageService provides read access to content pages with a read-through cache.
type PageService struct {
	repo  PageRepository
	cache cache.Store
}

// NewPageService creates a new PageService with the given repository and cache.
func NewPageService(repo PageRepository, c cache.Store) *PageService {
	return &PageService{repo: repo, cache: c}
}

// ViewPage retrieves a single page by its slug. A missing page is nil, nil.
func (s *PageService) ViewPage(ctx context.Context, slug string) (*data.Page, error) {
	return cache.Fetch(ctx, s.cache, PublicCachePrefix+"page:"+slug, pageCacheTTL, func(ctx context.Context) (*data.Page, error) {
		return s.repo.GetPageBySlug(ctx, slug)
	})
}

// ViewPages retrieves several pages keyed by slug. Missing slugs are absent.
func (s *PageService) ViewPages(ctx context.Context, slugs ...string) (map[string]*data.Page, error) {
	return s.repo.GetPagesBySlugs(ctx, slugs)
}

// GetAllPages lists every page, for the sitemap.
func (s *PageService) GetAllPages(ctx context.Context) ([]*data.Page, error) {
	return s.repo.GetAllPages(ctx)
}
