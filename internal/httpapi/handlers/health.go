package handlers

import (
	"net/http"

	"github.com/bloglens/intel-service/internal/domain"
)

type healthResponse struct {
	Status       string `json:"status"`
	TasksRunning int    `json:"tasks_running"`
	TasksPending int    `json:"tasks_pending"`
	TasksFailed  int    `json:"tasks_failed"`
	TasksDone    int    `json:"tasks_done"`
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	counts, err := a.queue.CountByStatus(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "health_check_failed", "could not read task counts")
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		TasksRunning: counts[domain.TaskRunning],
		TasksPending: counts[domain.TaskPending],
		TasksFailed:  counts[domain.TaskFailed],
		TasksDone:    counts[domain.TaskDone],
	})
}
