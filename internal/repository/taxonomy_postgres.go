package repository

import (
	"context"
	"fmt"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresTaxonomyRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTaxonomyRepository(pool *pgxpool.Pool) *PostgresTaxonomyRepository {
	return &PostgresTaxonomyRepository{pool: pool}
}

var _ TaxonomyRepository = (*PostgresTaxonomyRepository)(nil)

func (r *PostgresTaxonomyRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, parent_id, code, name FROM categories ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Code, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *PostgresTaxonomyRepository) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, tag_group, status FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]domain.Tag, 0)
	for rows.Next() {
		var t domain.Tag
		var group, status string
		if err := rows.Scan(&t.ID, &t.Name, &group, &status); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		t.Group = domain.TagGroup(group)
		t.Status = domain.TagStatus(status)
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *PostgresTaxonomyRepository) ListCities(ctx context.Context) ([]domain.City, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, country FROM cities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	defer rows.Close()

	cities := make([]domain.City, 0)
	for rows.Next() {
		var c domain.City
		if err := rows.Scan(&c.ID, &c.Name, &c.Country); err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

// ReplaceBlogCategories wraps the delete+insert in a single
// transaction. The original matcher issued these as two independent
// Supabase calls with a retry on unique-constraint violation; a Go
// port can close that race window outright with a transaction without
// changing any observable behavior.
func (r *PostgresTaxonomyRepository) ReplaceBlogCategories(ctx context.Context, blogID string, categories []domain.BlogCategory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace blog categories: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM blog_categories WHERE blog_id = $1`, blogID); err != nil {
		return fmt.Errorf("delete blog categories: %w", err)
	}
	batch := &pgx.Batch{}
	for _, category := range categories {
		batch.Queue(
			`INSERT INTO blog_categories (blog_id, category_id, is_primary) VALUES ($1, $2, $3)`,
			blogID, category.CategoryID, category.IsPrimary,
		)
	}
	results := tx.SendBatch(ctx, batch)
	for range categories {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert blog category: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close blog category batch: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *PostgresTaxonomyRepository) ReplaceBlogTags(ctx context.Context, blogID string, tagIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace blog tags: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM blog_tags WHERE blog_id = $1`, blogID); err != nil {
		return fmt.Errorf("delete blog tags: %w", err)
	}
	batch := &pgx.Batch{}
	for _, tagID := range tagIDs {
		batch.Queue(`INSERT INTO blog_tags (blog_id, tag_id) VALUES ($1, $2)`, blogID, tagID)
	}
	results := tx.SendBatch(ctx, batch)
	for range tagIDs {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert blog tag: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close blog tag batch: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *PostgresTaxonomyRepository) SetBlogCity(ctx context.Context, blogID string, cityID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE blogs SET city_id = $2 WHERE id = $1`, blogID, cityID)
	if err != nil {
		return fmt.Errorf("set blog city: %w", err)
	}
	return nil
}

func (r *PostgresTaxonomyRepository) CreateUnconfirmedTag(ctx context.Context, name string, group domain.TagGroup) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tags (name, tag_group, status) VALUES ($1, $2, 'unconfirmed')
		ON CONFLICT (name) DO UPDATE SET name = excluded.name
		RETURNING id
	`, name, string(group)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create unconfirmed tag: %w", err)
	}
	return id, nil
}

func (r *PostgresTaxonomyRepository) BlogsWithInsightsMissingMappings(ctx context.Context, limit int) ([]domain.Blog, error) {
	rows, err := r.pool.Query(ctx, blogSelectQuery+`
		WHERE scrape_status = 'ai_analyzed'
		  AND NOT EXISTS (SELECT 1 FROM blog_categories WHERE blog_categories.blog_id = blogs.id)
		ORDER BY ai_analyzed_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("blogs missing mappings: %w", err)
	}
	defer rows.Close()
	return scanBlogs(rows)
}

// BlogsWithInsightsMissingCity backs the one-time startup backfill: it
// is safe to run on every boot because once every analyzed blog has a
// city_id set the query returns nothing.
func (r *PostgresTaxonomyRepository) BlogsWithInsightsMissingCity(ctx context.Context, limit int) ([]domain.Blog, error) {
	rows, err := r.pool.Query(ctx, blogSelectQuery+`
		WHERE scrape_status = 'ai_analyzed'
		  AND blogs.city_id IS NULL
		ORDER BY ai_analyzed_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("blogs missing city: %w", err)
	}
	defer rows.Close()
	return scanBlogs(rows)
}
