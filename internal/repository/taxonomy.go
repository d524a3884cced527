package repository

import (
	"context"

	"github.com/bloglens/intel-service/internal/domain"
)

// TaxonomyRepository is the storage contract for the category/tag/city
// trees and their many-to-many assignments to blogs.
type TaxonomyRepository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListTags(ctx context.Context) ([]domain.Tag, error)
	ListCities(ctx context.Context) ([]domain.City, error)

	// ReplaceBlogCategories deletes the blog's existing category
	// assignments and inserts the given set, in one transaction. Exactly
	// one entry should carry IsPrimary = true, resolved from the
	// blog's primary categories; the rest are secondary topics.
	ReplaceBlogCategories(ctx context.Context, blogID string, categories []domain.BlogCategory) error
	// ReplaceBlogTags deletes the blog's existing tag assignments and
	// inserts the given set, in one transaction.
	ReplaceBlogTags(ctx context.Context, blogID string, tagIDs []string) error

	SetBlogCity(ctx context.Context, blogID string, cityID string) error

	CreateUnconfirmedTag(ctx context.Context, name string, group domain.TagGroup) (string, error)

	// BlogsWithInsightsMissingMappings returns blogs that have AI
	// insights but no category/tag assignments yet, for the retry job.
	BlogsWithInsightsMissingMappings(ctx context.Context, limit int) ([]domain.Blog, error)

	// BlogsWithInsightsMissingCity returns blogs that have AI insights
	// but no resolved city yet, for the one-time backfill job.
	BlogsWithInsightsMissingCity(ctx context.Context, limit int) ([]domain.Blog, error)
}
