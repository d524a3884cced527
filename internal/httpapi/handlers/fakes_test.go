package handlers

import (
	"context"
	"time"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/repository"
)

// fakeTaskRepository is a minimal in-memory repository.TaskRepository,
// enough to back taskqueue.Queue for handler-level HTTP tests without
// a real database.
type fakeTaskRepository struct {
	tasks   map[string]domain.Task
	nextID  int
	counts  map[domain.TaskStatus]int
	retryOK bool
}

func newFakeTaskRepository() *fakeTaskRepository {
	return &fakeTaskRepository{tasks: make(map[string]domain.Task)}
}

func (f *fakeTaskRepository) CreateIfAbsent(_ context.Context, blogID string, taskType domain.TaskType, priority int, _ []byte) (string, error) {
	for _, t := range f.tasks {
		sameBlog := (t.BlogID == nil && blogID == "") || (t.BlogID != nil && *t.BlogID == blogID)
		if sameBlog && t.TaskType == taskType && !t.IsTerminal() {
			return "", nil
		}
	}
	f.nextID++
	id := "task-" + string(rune('0'+f.nextID))
	var blogPtr *string
	if blogID != "" {
		blogPtr = &blogID
	}
	f.tasks[id] = domain.Task{
		ID: id, BlogID: blogPtr, TaskType: taskType, Status: domain.TaskPending,
		Priority: priority, MaxAttempts: 3, CreatedAt: time.Now().UTC(),
	}
	return id, nil
}

func (f *fakeTaskRepository) ClaimBatch(_ context.Context, _ int) ([]domain.Task, error) {
	return nil, nil
}

func (f *fakeTaskRepository) MarkDone(_ context.Context, _ string) error { return nil }

func (f *fakeTaskRepository) MarkFailed(_ context.Context, _ string, _ string, _ bool, _ *time.Time) error {
	return nil
}

func (f *fakeTaskRepository) Get(_ context.Context, taskID string) (domain.Task, error) {
	t, ok := f.tasks[taskID]
	if !ok {
		return domain.Task{}, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeTaskRepository) List(_ context.Context, filter domain.TaskFilter, limit, offset int) ([]domain.Task, int, error) {
	var matched []domain.Task
	for _, t := range f.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.TaskType != "" && t.TaskType != filter.TaskType {
			continue
		}
		matched = append(matched, t)
	}
	return matched, len(matched), nil
}

func (f *fakeTaskRepository) Retry(_ context.Context, taskID string) error {
	t, ok := f.tasks[taskID]
	if !ok {
		return repository.ErrNotFound
	}
	if t.Status != domain.TaskFailed {
		return repository.ErrNotFailed
	}
	t.Status = domain.TaskPending
	f.tasks[taskID] = t
	return nil
}

func (f *fakeTaskRepository) RecoverStuck(_ context.Context, _ int) (int, error) { return 0, nil }

func (f *fakeTaskRepository) MarkRunningBatch(_ context.Context, _ []string) error { return nil }

func (f *fakeTaskRepository) SetPayloadBatchID(_ context.Context, _ []string, _ string) error {
	return nil
}

func (f *fakeTaskRepository) RunningAIAnalysisByBatch(_ context.Context) (map[string][]domain.Task, error) {
	return nil, nil
}

func (f *fakeTaskRepository) PendingAIAnalysis(_ context.Context, _ int) ([]domain.Task, error) {
	return nil, nil
}

func (f *fakeTaskRepository) CountByStatus(_ context.Context) (map[domain.TaskStatus]int, error) {
	if f.counts != nil {
		return f.counts, nil
	}
	counts := make(map[domain.TaskStatus]int)
	for _, t := range f.tasks {
		counts[t.Status]++
	}
	return counts, nil
}

var _ repository.TaskRepository = (*fakeTaskRepository)(nil)

// fakeBlogRepository embeds the interface unimplemented; each test
// overrides only the methods its scenario exercises.
type fakeBlogRepository struct {
	repository.BlogRepository
	byUsername map[string]domain.Blog
	stubs      map[string]string
}

func newFakeBlogRepository() *fakeBlogRepository {
	return &fakeBlogRepository{byUsername: make(map[string]domain.Blog), stubs: make(map[string]string)}
}

func (f *fakeBlogRepository) GetByUsername(_ context.Context, username string) (domain.Blog, error) {
	b, ok := f.byUsername[username]
	if !ok {
		return domain.Blog{}, repository.ErrNotFound
	}
	return b, nil
}

func (f *fakeBlogRepository) CreateStub(_ context.Context, username string) (string, error) {
	if id, ok := f.stubs[username]; ok {
		return id, nil
	}
	id := "blog-" + username
	f.stubs[username] = id
	return id, nil
}
