package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/taskqueue"
)

func TestTasksListFiltersByStatusAndClampsLimit(t *testing.T) {
	repo := newFakeTaskRepository()
	repo.tasks["t1"] = domain.Task{ID: "t1", TaskType: domain.TaskFullScrape, Status: domain.TaskPending}
	repo.tasks["t2"] = domain.Task{ID: "t2", TaskType: domain.TaskFullScrape, Status: domain.TaskDone}
	api := NewAPI(taskqueue.New(repo), newFakeBlogRepository())

	req := httptest.NewRequest(http.MethodGet, "/api/tasks?status=pending&limit=999", nil)
	rec := httptest.NewRecorder()

	api.Tasks(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp taskListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Limit != 20 {
		t.Errorf("Limit = %d, want clamped to 20", resp.Limit)
	}
	if len(resp.Tasks) != 1 || resp.Tasks[0].ID != "t1" {
		t.Errorf("expected only t1 to match status=pending, got %+v", resp.Tasks)
	}
}

func TestTaskByIDReturns404ForUnknownTask(t *testing.T) {
	api := NewAPI(taskqueue.New(newFakeTaskRepository()), newFakeBlogRepository())
	req := httptest.NewRequest(http.MethodGet, "/api/tasks/missing", nil)
	rec := httptest.NewRecorder()

	api.TaskByID(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestTaskByIDReturnsTask(t *testing.T) {
	repo := newFakeTaskRepository()
	repo.tasks["t1"] = domain.Task{ID: "t1", TaskType: domain.TaskFullScrape, Status: domain.TaskPending}
	api := NewAPI(taskqueue.New(repo), newFakeBlogRepository())

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/t1", nil)
	rec := httptest.NewRecorder()

	api.TaskByID(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var view taskView
	json.Unmarshal(rec.Body.Bytes(), &view)
	if view.ID != "t1" {
		t.Errorf("ID = %q, want t1", view.ID)
	}
}

func TestRetryTaskSucceedsForFailedTask(t *testing.T) {
	repo := newFakeTaskRepository()
	repo.tasks["t1"] = domain.Task{ID: "t1", TaskType: domain.TaskFullScrape, Status: domain.TaskFailed}
	api := NewAPI(taskqueue.New(repo), newFakeBlogRepository())

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/t1/retry", nil)
	rec := httptest.NewRecorder()

	api.TaskByID(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	updated, _ := repo.Get(context.Background(), "t1")
	if updated.Status != domain.TaskPending {
		t.Errorf("expected task reset to pending, got %v", updated.Status)
	}
}

func TestRetryTaskConflictsForNonFailedTask(t *testing.T) {
	repo := newFakeTaskRepository()
	repo.tasks["t1"] = domain.Task{ID: "t1", TaskType: domain.TaskFullScrape, Status: domain.TaskDone}
	api := NewAPI(taskqueue.New(repo), newFakeBlogRepository())

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/t1/retry", nil)
	rec := httptest.NewRecorder()

	api.TaskByID(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestTaskByIDUnknownSubrouteIs404(t *testing.T) {
	api := NewAPI(taskqueue.New(newFakeTaskRepository()), newFakeBlogRepository())
	req := httptest.NewRequest(http.MethodGet, "/api/tasks/t1/something-else", nil)
	rec := httptest.NewRecorder()

	api.TaskByID(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
