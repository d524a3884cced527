package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/repository"
	"github.com/bloglens/intel-service/internal/taskqueue"
)

type scrapeRequest struct {
	Usernames []string `json:"usernames"`
}

type scrapeTaskResult struct {
	TaskID   string `json:"task_id,omitempty"`
	Username string `json:"username"`
	BlogID   string `json:"blog_id"`
	Status   string `json:"status"`
}

type scrapeResponse struct {
	Created int                 `json:"created"`
	Skipped int                 `json:"skipped"`
	Tasks   []scrapeTaskResult  `json:"tasks"`
}

// Scrape handles POST /api/tasks/scrape: queues a full_scrape task for
// each username, creating a blog stub for ones never seen before.
func (a *API) Scrape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req scrapeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid_payload", "request body is not valid JSON")
		return
	}

	usernames := dedupeUsernames(req.Usernames)
	if len(usernames) == 0 {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid_payload", "usernames must contain at least one entry")
		return
	}
	if len(usernames) > 100 {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid_payload", "usernames must contain at most 100 entries")
		return
	}

	ctx := r.Context()
	results := make([]scrapeTaskResult, 0, len(usernames))
	created, skipped := 0, 0

	for _, username := range usernames {
		blogID, err := a.resolveBlogID(ctx, username)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to resolve blog for "+username)
			return
		}

		taskID, err := a.queue.Enqueue(ctx, blogID, domain.TaskFullScrape, taskqueue.PriorityNormal, nil)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to enqueue scrape for "+username)
			return
		}

		result := scrapeTaskResult{Username: username, BlogID: blogID}
		if taskID == "" {
			result.Status = "skipped"
			skipped++
		} else {
			result.TaskID = taskID
			result.Status = "created"
			created++
		}
		results = append(results, result)
	}

	writeJSON(w, http.StatusCreated, scrapeResponse{Created: created, Skipped: skipped, Tasks: results})
}

// resolveBlogID returns the tracked blog's id for username, creating a
// stub row if this is the first time it's been requested.
func (a *API) resolveBlogID(ctx context.Context, username string) (string, error) {
	blog, err := a.blogs.GetByUsername(ctx, username)
	if err == nil {
		return blog.ID, nil
	}
	if err != repository.ErrNotFound {
		return "", err
	}
	return a.blogs.CreateStub(ctx, username)
}

func dedupeUsernames(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		normalized := normalizeUsername(u)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}

func normalizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	return strings.ToLower(username)
}
