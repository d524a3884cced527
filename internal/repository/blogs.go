package repository

import (
	"context"

	"github.com/bloglens/intel-service/internal/domain"
)

// BlogRepository is the storage contract for blog profiles, their
// posts/highlights, AI insights, and embeddings.
type BlogRepository interface {
	// UpsertProfile writes a scraped profile plus derived metrics,
	// keyed on platform_id. Returns the blog's internal id.
	UpsertProfile(ctx context.Context, profile domain.ScrapedProfile, status domain.ScrapeStatus) (string, error)
	UpsertPosts(ctx context.Context, blogID string, posts []domain.ScrapedPost) error
	UpsertHighlights(ctx context.Context, blogID string, highlights []domain.ScrapedHighlight) error

	// CreateStub inserts a placeholder row for a username the platform
	// hasn't scraped yet, before its platform_id is known. Returns the
	// existing id without error if the username is already tracked.
	CreateStub(ctx context.Context, username string) (string, error)

	// UpdateProfile overwrites blogID's profile fields in place, keyed
	// on its internal id rather than platform_id — used by full_scrape
	// so a stub row created by CreateStub keeps its id once the real
	// platform_id becomes known. avgReelsViews is computed by the
	// handler (not the adapter) since it isn't part of ScrapedProfile.
	UpdateProfile(ctx context.Context, blogID string, profile domain.ScrapedProfile, avgReelsViews *int, status domain.ScrapeStatus) error

	GetByID(ctx context.Context, blogID string) (domain.Blog, error)
	GetByUsername(ctx context.Context, username string) (domain.Blog, error)
	GetByIDs(ctx context.Context, blogIDs []string) ([]domain.Blog, error)

	SetScrapeStatus(ctx context.Context, blogID string, status domain.ScrapeStatus) error

	// SaveInsights persists the decoded AIInsights document and its raw
	// JSON form. scrape_status becomes ai_refused when
	// insights.RefusalReason is set, unless the blog is already
	// ai_refused — a second consecutive refusal is terminal and moves
	// to ai_analyzed instead of refusing again.
	SaveInsights(ctx context.Context, blogID string, insights domain.AIInsights, raw []byte) error

	SaveEmbedding(ctx context.Context, blogID string, embedding []float32) error

	// MissingEmbeddings returns blogs with ai_analyzed insights but no
	// stored embedding, excluding ai_refused blogs.
	MissingEmbeddings(ctx context.Context, limit int) ([]domain.Blog, error)

	// ExistingUsernames filters the given usernames down to the ones
	// already present in the store, for discover's dedup check.
	ExistingUsernames(ctx context.Context, usernames []string) (map[string]bool, error)

	// StaleForRescrape returns blogs last scraped before the freshness
	// window, for schedule_updates.
	StaleForRescrape(ctx context.Context, olderThanHours int, limit int) ([]domain.Blog, error)
}
