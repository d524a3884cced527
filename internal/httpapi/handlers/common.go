// Package handlers implements the HTTP control plane: task inspection
// and creation endpoints backed directly by the task queue and blog
// repository, no service layer in between.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/httpapi/middleware"
	"github.com/bloglens/intel-service/internal/repository"
	"github.com/bloglens/intel-service/internal/taskqueue"
)

var errInvalidPayload = errors.New("invalid payload")

// API groups every handler method behind the dependencies they share.
type API struct {
	queue *taskqueue.Queue
	blogs repository.BlogRepository
}

func NewAPI(queue *taskqueue.Queue, blogs repository.BlogRepository) *API {
	return &API{queue: queue, blogs: blogs}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}

func parseIntDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

type taskView struct {
	ID           string         `json:"id"`
	BlogID       *string        `json:"blog_id,omitempty"`
	TaskType     domain.TaskType `json:"task_type"`
	Status       domain.TaskStatus `json:"status"`
	Priority     int            `json:"priority"`
	Attempts     int            `json:"attempts"`
	MaxAttempts  int            `json:"max_attempts"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    string         `json:"created_at"`
}

func toTaskView(t domain.Task) taskView {
	return taskView{
		ID:           t.ID,
		BlogID:       t.BlogID,
		TaskType:     t.TaskType,
		Status:       t.Status,
		Priority:     t.Priority,
		Attempts:     t.Attempts,
		MaxAttempts:  t.MaxAttempts,
		ErrorMessage: t.ErrorMessage,
		CreatedAt:    t.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
