// Package handlers implements the worker.Handler for the full_scrape
// and discover task types. ai_analysis tasks have no handler here: the
// scheduler's poll_batches job submits them through aipipeline.
package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/objectstorage"
	"github.com/bloglens/intel-service/internal/repository"
	"github.com/bloglens/intel-service/internal/scraping"
	"github.com/bloglens/intel-service/internal/taskqueue"
)

// FullScrapeHandler scrapes one account's profile, posts, and
// highlights, persists the result, computes derived engagement
// metrics, replaces ephemeral CDN image URLs with object-storage
// paths, and chains an ai_analysis task.
type FullScrapeHandler struct {
	adapter       scraping.Adapter
	blogs         repository.BlogRepository
	queue         *taskqueue.Queue
	store         *objectstorage.Store
	maxThumbnails int
	logger        *log.Logger
}

func NewFullScrapeHandler(adapter scraping.Adapter, blogs repository.BlogRepository, queue *taskqueue.Queue, store *objectstorage.Store, maxThumbnails int, logger *log.Logger) *FullScrapeHandler {
	if maxThumbnails <= 0 {
		maxThumbnails = 7
	}
	return &FullScrapeHandler{adapter: adapter, blogs: blogs, queue: queue, store: store, maxThumbnails: maxThumbnails, logger: logger}
}

var _ interface {
	Handle(ctx context.Context, task domain.Task) error
} = (*FullScrapeHandler)(nil)

func (h *FullScrapeHandler) Handle(ctx context.Context, task domain.Task) error {
	if task.BlogID == nil || *task.BlogID == "" {
		return fmt.Errorf("full_scrape task %s has no blog_id", task.ID)
	}
	blogID := *task.BlogID

	blog, err := h.blogs.GetByID(ctx, blogID)
	if err != nil {
		return fmt.Errorf("load blog %s: %w", blogID, err)
	}
	username := normalizeUsername(blog.Username)

	profile, err := h.adapter.ScrapeProfile(ctx, username)
	if err != nil {
		return h.handleScrapeError(ctx, blogID, err)
	}

	avgReelsViews := scraping.AverageReelsViews(profile.Medias)
	h.persistImages(ctx, blogID, &profile)

	if err := h.blogs.UpdateProfile(ctx, blogID, profile, avgReelsViews, domain.ScrapeStatusAnalyzing); err != nil {
		return fmt.Errorf("update profile for blog %s: %w", blogID, err)
	}
	if err := h.blogs.UpsertPosts(ctx, blogID, profile.Medias); err != nil {
		return fmt.Errorf("upsert posts for blog %s: %w", blogID, err)
	}
	if err := h.blogs.UpsertHighlights(ctx, blogID, profile.Highlights); err != nil {
		return fmt.Errorf("upsert highlights for blog %s: %w", blogID, err)
	}

	if _, err := h.queue.Enqueue(ctx, blogID, domain.TaskAIAnalysis, taskqueue.PriorityAIAnalysis, nil); err != nil {
		h.logf("chain ai_analysis for blog %s failed: %v", blogID, err)
	}

	return nil
}

// persistImages downloads the avatar and up to maxThumbnails post
// thumbnails into object storage, rewriting profile's URLs to the
// resulting storage paths in place. A download failure is logged and
// skipped rather than failing the scrape — the CDN URL it leaves
// behind still works, just not indefinitely.
func (h *FullScrapeHandler) persistImages(ctx context.Context, blogID string, profile *domain.ScrapedProfile) {
	if h.store == nil {
		return
	}

	if path, err := h.store.SaveAvatar(ctx, blogID, profile.ProfilePicURL); err != nil {
		h.logf("persist avatar for blog %s failed: %v", blogID, err)
	} else if path != "" {
		profile.ProfilePicURL = path
	}

	persisted := 0
	for i := range profile.Medias {
		if persisted >= h.maxThumbnails {
			break
		}
		post := &profile.Medias[i]
		if post.ThumbnailURL == "" {
			continue
		}
		path, err := h.store.SavePostThumbnail(ctx, blogID, post.PlatformID, post.ThumbnailURL)
		if err != nil {
			h.logf("persist thumbnail for blog %s post %s failed: %v", blogID, post.PlatformID, err)
			continue
		}
		if path != "" {
			post.ThumbnailURL = path
		}
		persisted++
	}
}

// handleScrapeError maps the scraping adapter's typed error taxonomy
// to a terminal blog status where retrying can never help (private,
// deleted), to a retryable task failure that reverts the blog to
// pending (rate limited, transient backend errors), or leaves the
// blog's status untouched entirely when the backend's own balance is
// exhausted — that's an operator concern, not a signal the blog is
// bad.
func (h *FullScrapeHandler) handleScrapeError(ctx context.Context, blogID string, err error) error {
	switch scraping.Classify(err) {
	case scraping.OutcomePrivate:
		_ = h.blogs.SetScrapeStatus(ctx, blogID, domain.ScrapeStatusPrivate)
		return taskqueue.PermanentError{Cause: err}
	case scraping.OutcomeNotFound:
		_ = h.blogs.SetScrapeStatus(ctx, blogID, domain.ScrapeStatusDeleted)
		return taskqueue.PermanentError{Cause: err}
	case scraping.OutcomeInsufficientBalance:
		return taskqueue.PermanentError{Cause: err}
	case scraping.OutcomeRetryable:
		_ = h.blogs.SetScrapeStatus(ctx, blogID, domain.ScrapeStatusPending)
		return err
	default:
		_ = h.blogs.SetScrapeStatus(ctx, blogID, domain.ScrapeStatusFailed)
		return err
	}
}

func normalizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	return strings.ToLower(username)
}

func (h *FullScrapeHandler) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}
