package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/taskqueue"
)

func TestDiscoverHandleCreatesStubsAndChainsScrapeForNewAccounts(t *testing.T) {
	blogs := newFakeBlogStore()
	taskStore := &fakeHandlerTaskStore{}
	adapter := &fakeAdapter{candidates: []domain.DiscoveredProfile{
		{Username: "newcreator", FollowerCount: 5000},
	}}

	h := NewDiscoverHandler(adapter, blogs, taskqueue.New(taskStore), 24*time.Hour, nil)
	task := domain.Task{ID: "t1", TaskType: domain.TaskDiscover, Payload: domain.TaskPayload{Hashtag: "fitness", MinFollowers: 1000}}

	if err := h.Handle(context.Background(), task); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if blogs.upserts != 1 {
		t.Errorf("expected one new blog stub created, got %d", blogs.upserts)
	}

	found := false
	for _, e := range taskStore.enqueued {
		if e == "full_scrape:blog-newcreator" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected full_scrape chained for the new blog, got %v", taskStore.enqueued)
	}
}

func TestDiscoverHandleRejectsEmptyHashtag(t *testing.T) {
	h := NewDiscoverHandler(&fakeAdapter{}, newFakeBlogStore(), taskqueue.New(&fakeHandlerTaskStore{}), time.Hour, nil)
	task := domain.Task{ID: "t1", TaskType: domain.TaskDiscover, Payload: domain.TaskPayload{Hashtag: "  "}}

	err := h.Handle(context.Background(), task)
	if err == nil {
		t.Fatal("expected an error for a blank hashtag")
	}
}

func TestDiscoverHandleSkipsAlreadyTrackedFreshAccounts(t *testing.T) {
	blogs := newFakeBlogStore()
	recently := time.Now().UTC()
	blogs.blogs["blog-existing"] = domain.Blog{ID: "blog-existing", Username: "existing", ScrapedAt: &recently}
	blogs.existing["existing"] = true
	taskStore := &fakeHandlerTaskStore{}
	adapter := &fakeAdapter{candidates: []domain.DiscoveredProfile{{Username: "existing", FollowerCount: 5000}}}

	h := NewDiscoverHandler(adapter, blogs, taskqueue.New(taskStore), 24*time.Hour, nil)
	task := domain.Task{ID: "t1", TaskType: domain.TaskDiscover, Payload: domain.TaskPayload{Hashtag: "fitness"}}

	if err := h.Handle(context.Background(), task); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if blogs.upserts != 0 {
		t.Errorf("expected no new stub for an already-tracked account, got %d upserts", blogs.upserts)
	}
	if len(taskStore.enqueued) != 0 {
		t.Errorf("expected no rescrape chained for a freshly scraped account, got %v", taskStore.enqueued)
	}
}
