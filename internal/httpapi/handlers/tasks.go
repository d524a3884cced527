package handlers

import (
	"net/http"
	"strings"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/repository"
)

type taskListResponse struct {
	Tasks  []taskView `json:"tasks"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// Tasks handles GET /api/tasks (list).
func (a *API) Tasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	query := r.URL.Query()
	filter := domain.TaskFilter{
		Status:   domain.TaskStatus(strings.TrimSpace(query.Get("status"))),
		TaskType: domain.TaskType(strings.TrimSpace(query.Get("task_type"))),
	}
	limit := parseIntDefault(query.Get("limit"), 20)
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	offset := parseIntDefault(query.Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	tasks, total, err := a.queue.List(r.Context(), filter, limit, offset)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to list tasks")
		return
	}

	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, toTaskView(t))
	}
	writeJSON(w, http.StatusOK, taskListResponse{Tasks: views, Total: total, Limit: limit, Offset: offset})
}

// TaskByID handles GET /api/tasks/{id} and POST /api/tasks/{id}/retry.
func (a *API) TaskByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	rest = strings.Trim(rest, "/")
	if rest == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "task id is required")
		return
	}

	if segments := strings.Split(rest, "/"); len(segments) == 2 && segments[1] == "retry" {
		a.retryTask(w, r, segments[0])
		return
	} else if len(segments) != 1 {
		writeError(w, r, http.StatusNotFound, "not_found", "unknown route")
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	task, err := a.queue.Get(r.Context(), rest)
	if err != nil {
		if err == repository.ErrNotFound {
			writeError(w, r, http.StatusNotFound, "not_found", "task not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load task")
		return
	}
	writeJSON(w, http.StatusOK, toTaskView(task))
}

type retryResponse struct {
	TaskID string `json:"task_id"`
}

func (a *API) retryTask(w http.ResponseWriter, r *http.Request, taskID string) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	err := a.queue.Retry(r.Context(), taskID)
	switch err {
	case nil:
		writeJSON(w, http.StatusOK, retryResponse{TaskID: taskID})
	case repository.ErrNotFound:
		writeError(w, r, http.StatusNotFound, "not_found", "task not found")
	case repository.ErrNotFailed:
		writeError(w, r, http.StatusConflict, "not_failed", "task is not in a failed state")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to retry task")
	}
}
