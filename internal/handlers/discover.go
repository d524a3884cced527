package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/repository"
	"github.com/bloglens/intel-service/internal/scraping"
	"github.com/bloglens/intel-service/internal/taskqueue"
)

// DiscoverHandler searches a hashtag for candidate accounts above a
// follower threshold, checks which ones are already tracked in a
// single batched query, creates blog stubs for the rest, and chains a
// full_scrape task for every new or stale one.
type DiscoverHandler struct {
	adapter          scraping.Adapter
	blogs            repository.BlogRepository
	queue            *taskqueue.Queue
	freshnessWindow  time.Duration
	logger           *log.Logger
}

func NewDiscoverHandler(adapter scraping.Adapter, blogs repository.BlogRepository, queue *taskqueue.Queue, freshnessWindow time.Duration, logger *log.Logger) *DiscoverHandler {
	return &DiscoverHandler{adapter: adapter, blogs: blogs, queue: queue, freshnessWindow: freshnessWindow, logger: logger}
}

func (h *DiscoverHandler) Handle(ctx context.Context, task domain.Task) error {
	hashtag := strings.TrimSpace(task.Payload.Hashtag)
	if hashtag == "" {
		return taskqueue.PermanentError{Cause: fmt.Errorf("discover task %s has no hashtag", task.ID)}
	}
	minFollowers := task.Payload.MinFollowers

	candidates, err := h.adapter.Discover(ctx, hashtag, minFollowers)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	usernames := make([]string, 0, len(candidates))
	for _, c := range candidates {
		usernames = append(usernames, normalizeUsername(c.Username))
	}
	existing, err := h.blogs.ExistingUsernames(ctx, usernames)
	if err != nil {
		return fmt.Errorf("check existing usernames: %w", err)
	}

	for _, candidate := range candidates {
		username := normalizeUsername(candidate.Username)
		if existing[username] {
			if err := h.rescrapeIfStale(ctx, username); err != nil {
				h.logf("rescrape check for existing blog %s failed: %v", username, err)
			}
			continue
		}

		blogID, err := h.blogs.UpsertProfile(ctx, domain.ScrapedProfile{
			PlatformID:    candidate.PlatformID,
			Username:      username,
			FullName:      candidate.FullName,
			Biography:     candidate.Biography,
			FollowerCount: candidate.FollowerCount,
			MediaCount:    candidate.MediaCount,
			IsBusiness:    candidate.IsBusiness,
			IsVerified:    candidate.IsVerified,
		}, domain.ScrapeStatusPending)
		if err != nil {
			h.logf("create blog stub for %s failed: %v", username, err)
			continue
		}

		if _, err := h.queue.Enqueue(ctx, blogID, domain.TaskFullScrape, taskqueue.PriorityNormal, nil); err != nil {
			h.logf("chain full_scrape for new blog %s failed: %v", username, err)
		}
	}
	return nil
}

func (h *DiscoverHandler) rescrapeIfStale(ctx context.Context, username string) error {
	blog, err := h.blogs.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if blog.ScrapedAt != nil && time.Since(*blog.ScrapedAt) < h.freshnessWindow {
		return nil
	}
	_, err = h.queue.Enqueue(ctx, blog.ID, domain.TaskFullScrape, taskqueue.PriorityLow, nil)
	return err
}

func (h *DiscoverHandler) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}
