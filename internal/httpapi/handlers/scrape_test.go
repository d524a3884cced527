package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/taskqueue"
)

func TestScrapeCreatesStubForUnknownUsername(t *testing.T) {
	taskRepo := newFakeTaskRepository()
	blogs := newFakeBlogRepository()
	api := NewAPI(taskqueue.New(taskRepo), blogs)

	body, _ := json.Marshal(scrapeRequest{Usernames: []string{"@NewCreator"}})
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/scrape", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	api.Scrape(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp scrapeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Created != 1 || resp.Skipped != 0 {
		t.Errorf("resp = %+v, want Created=1 Skipped=0", resp)
	}
	if resp.Tasks[0].Username != "newcreator" {
		t.Errorf("username not normalized: %q", resp.Tasks[0].Username)
	}
}

func TestScrapeDedupesUsernamesWithinOneRequest(t *testing.T) {
	taskRepo := newFakeTaskRepository()
	blogs := newFakeBlogRepository()
	api := NewAPI(taskqueue.New(taskRepo), blogs)

	body, _ := json.Marshal(scrapeRequest{Usernames: []string{"alice", "ALICE", "@alice "}})
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/scrape", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	api.Scrape(rec, req)

	var resp scrapeResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Tasks) != 1 {
		t.Errorf("expected one deduped task, got %d", len(resp.Tasks))
	}
}

func TestScrapeRejectsEmptyUsernameList(t *testing.T) {
	api := NewAPI(taskqueue.New(newFakeTaskRepository()), newFakeBlogRepository())

	body, _ := json.Marshal(scrapeRequest{Usernames: []string{}})
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/scrape", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	api.Scrape(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestScrapeRejectsTooManyUsernames(t *testing.T) {
	api := NewAPI(taskqueue.New(newFakeTaskRepository()), newFakeBlogRepository())

	usernames := make([]string, 101)
	for i := range usernames {
		usernames[i] = "user" + string(rune('a'+i%26)) + string(rune('0'+i/26))
	}
	body, _ := json.Marshal(scrapeRequest{Usernames: usernames})
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/scrape", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	api.Scrape(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 for over 100 usernames", rec.Code)
	}
}

func TestScrapeReusesExistingBlogID(t *testing.T) {
	taskRepo := newFakeTaskRepository()
	blogs := newFakeBlogRepository()
	blogs.byUsername["alice"] = domain.Blog{ID: "blog-known", Username: "alice"}
	api := NewAPI(taskqueue.New(taskRepo), blogs)

	body, _ := json.Marshal(scrapeRequest{Usernames: []string{"alice"}})
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/scrape", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	api.Scrape(rec, req)

	var resp scrapeResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Tasks[0].BlogID != "blog-known" {
		t.Errorf("BlogID = %q, want blog-known (no new stub created)", resp.Tasks[0].BlogID)
	}
}

func TestScrapeWrongMethod(t *testing.T) {
	api := NewAPI(taskqueue.New(newFakeTaskRepository()), newFakeBlogRepository())
	req := httptest.NewRequest(http.MethodGet, "/api/tasks/scrape", nil)
	rec := httptest.NewRecorder()

	api.Scrape(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
