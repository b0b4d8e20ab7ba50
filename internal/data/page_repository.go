package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SQLPageRepository reads slug-addressed content pages with sqlx.
type SQLPageRepository struct {
	db *sqlx.DB
}

// NewSQLPageRepository creates a new SQLPageRepository.
func NewSQLPageRepository(db *sqlx.DB) *SQLPageRepository {
	return &SQLPageRepository{db: db}
}

// GetPageBySlug retrieves a single page by its slug. A missing page is
// reported as nil, nil so callers can render their fallback copy.
func (r *SQLPageRepository) GetPageBySlug(ctx context.Context, slug string) (*Page, error) {
	var page Page
	query := `SELECT id, slug, title, content, created_at, updated_at FROM pages WHERE slug = ?`
	if err := r.db.GetContext(ctx, &page, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get page by slug: %w", err)
	}
	return &page, nil
}

// GetPagesBySlugs retrieves the pages whose slugs are listed, keyed by slug.
func (r *SQLPageRepository) GetPagesBySlugs(ctx context.Context, slugs []string) (map[string]*Page, error) {
	out := make(map[string]*Page, len(slugs))
	if len(slugs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT id, slug, title, content, created_at, updated_at FROM pages WHERE slug IN (?)`, slugs)
	if err != nil {
		return nil, fmt.Errorf("failed to build pages query: %w", err)
	}
	var pages []*Page
	if err := r.db.SelectContext(ctx, &pages, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get pages by slug: %w", err)
	}
	for _, p := range pages {
		out[p.Slug] = p
	}
	return out, nil
}

// GetAllPages retrieves all pages ordered by slug.
func (r *SQLPageRepository) GetAllPages(ctx context.Context) ([]*Page, error) {
	var pages []*Page
	query := `SELECT id, slug, title, content, created_at, updated_at FROM pages ORDER BY slug, id`
	if err := r.db.SelectContext(ctx, &pages, query); err != nil {
		return nil, fmt.Errorf("failed to get all pages: %w", err)
	}
	return pages, nil
}
