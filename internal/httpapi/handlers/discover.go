package handlers

import (
	"net/http"
	"strings"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/taskqueue"
)

type discoverRequest struct {
	Hashtag      string `json:"hashtag"`
	MinFollowers int    `json:"min_followers,omitempty"`
}

type discoverResponse struct {
	TaskID  string `json:"task_id,omitempty"`
	Hashtag string `json:"hashtag"`
}

// Discover handles POST /api/tasks/discover: enqueues a discover task
// for the given hashtag, which a worker expands into candidate blogs.
func (a *API) Discover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req discoverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid_payload", "request body is not valid JSON")
		return
	}

	hashtag := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(req.Hashtag), "#"))
	if hashtag == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid_payload", "hashtag is required")
		return
	}
	minFollowers := req.MinFollowers
	if minFollowers <= 0 {
		minFollowers = 1000
	}

	taskID, err := a.queue.Enqueue(r.Context(), "", domain.TaskDiscover, taskqueue.PriorityNormal, map[string]any{
		"hashtag":       hashtag,
		"min_followers": minFollowers,
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to enqueue discover task")
		return
	}

	writeJSON(w, http.StatusCreated, discoverResponse{TaskID: taskID, Hashtag: hashtag})
}
