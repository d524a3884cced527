package taskqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/repository"
)

type fakeTaskRepository struct {
	tasks      map[string]domain.Task
	nextID     int
	createdIDs []string
}

func newFakeTaskRepository() *fakeTaskRepository {
	return &fakeTaskRepository{tasks: make(map[string]domain.Task)}
}

func (f *fakeTaskRepository) CreateIfAbsent(_ context.Context, blogID string, taskType domain.TaskType, priority int, payload []byte) (string, error) {
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
	f.createdIDs = append(f.createdIDs, id)
	return id, nil
}

func (f *fakeTaskRepository) ClaimBatch(_ context.Context, limit int) ([]domain.Task, error) {
	var claimed []domain.Task
	for id, t := range f.tasks {
		if t.Status != domain.TaskPending {
			continue
		}
		t.Status = domain.TaskRunning
		t.Attempts++
		f.tasks[id] = t
		claimed = append(claimed, t)
		if len(claimed) == limit {
			break
		}
	}
	return claimed, nil
}

func (f *fakeTaskRepository) MarkDone(_ context.Context, taskID string) error {
	t, ok := f.tasks[taskID]
	if !ok {
		return repository.ErrNotFound
	}
	t.Status = domain.TaskDone
	f.tasks[taskID] = t
	return nil
}

func (f *fakeTaskRepository) MarkFailed(_ context.Context, taskID string, errMessage string, retry bool, nextRetryAt *time.Time) error {
	t, ok := f.tasks[taskID]
	if !ok {
		return repository.ErrNotFound
	}
	t.ErrorMessage = errMessage
	t.NextRetryAt = nextRetryAt
	if retry {
		t.Status = domain.TaskPending
	} else {
		t.Status = domain.TaskFailed
	}
	f.tasks[taskID] = t
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

func (f *fakeTaskRepository) RecoverStuck(_ context.Context, olderThanMinutes int) (int, error) {
	return 0, nil
}

func (f *fakeTaskRepository) MarkRunningBatch(_ context.Context, taskIDs []string) error {
	for _, id := range taskIDs {
		t := f.tasks[id]
		t.Status = domain.TaskRunning
		f.tasks[id] = t
	}
	return nil
}

func (f *fakeTaskRepository) SetPayloadBatchID(_ context.Context, taskIDs []string, batchID string) error {
	for _, id := range taskIDs {
		t := f.tasks[id]
		t.Payload.BatchID = batchID
		f.tasks[id] = t
	}
	return nil
}

func (f *fakeTaskRepository) RunningAIAnalysisByBatch(_ context.Context) (map[string][]domain.Task, error) {
	return nil, nil
}

func (f *fakeTaskRepository) PendingAIAnalysis(_ context.Context, limit int) ([]domain.Task, error) {
	return nil, nil
}

func (f *fakeTaskRepository) CountByStatus(_ context.Context) (map[domain.TaskStatus]int, error) {
	counts := make(map[domain.TaskStatus]int)
	for _, t := range f.tasks {
		counts[t.Status]++
	}
	return counts, nil
}

var _ repository.TaskRepository = (*fakeTaskRepository)(nil)

func TestEnqueueDedupesNonTerminalTasks(t *testing.T) {
	repo := newFakeTaskRepository()
	q := New(repo)
	ctx := context.Background()

	firstID, err := q.Enqueue(ctx, "blog-1", domain.TaskFullScrape, PriorityNormal, nil)
	if err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if firstID == "" {
		t.Fatalf("expected a task id on first enqueue")
	}

	secondID, err := q.Enqueue(ctx, "blog-1", domain.TaskFullScrape, PriorityNormal, nil)
	if err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	if secondID != "" {
		t.Errorf("expected dedup no-op, got new task id %q", secondID)
	}
}

func TestFailRetriesUntilAttemptsExhausted(t *testing.T) {
	repo := newFakeTaskRepository()
	q := New(repo)
	ctx := context.Background()

	taskID, _ := q.Enqueue(ctx, "blog-1", domain.TaskFullScrape, PriorityNormal, nil)
	task := repo.tasks[taskID]
	task.Attempts = 1
	task.MaxAttempts = 3
	repo.tasks[taskID] = task

	if err := q.Fail(ctx, task, errors.New("temporary failure")); err != nil {
		t.Fatalf("fail: %v", err)
	}
	got := repo.tasks[taskID]
	if got.Status != domain.TaskPending {
		t.Errorf("expected task back to pending for retry, got %s", got.Status)
	}
	if got.NextRetryAt == nil {
		t.Errorf("expected next_retry_at to be set")
	}

	task.Attempts = 3
	repo.tasks[taskID] = task
	if err := q.Fail(ctx, task, errors.New("final failure")); err != nil {
		t.Fatalf("fail: %v", err)
	}
	got = repo.tasks[taskID]
	if got.Status != domain.TaskFailed {
		t.Errorf("expected terminal failure once attempts exhausted, got %s", got.Status)
	}
}

func TestFailPermanentErrorSkipsRetry(t *testing.T) {
	repo := newFakeTaskRepository()
	q := New(repo)
	ctx := context.Background()

	taskID, _ := q.Enqueue(ctx, "blog-1", domain.TaskFullScrape, PriorityNormal, nil)
	task := repo.tasks[taskID]
	task.Attempts = 1
	task.MaxAttempts = 3
	repo.tasks[taskID] = task

	err := q.Fail(ctx, task, PermanentError{Cause: errors.New("account deleted")})
	if err != nil {
		t.Fatalf("fail: %v", err)
	}
	got := repo.tasks[taskID]
	if got.Status != domain.TaskFailed {
		t.Errorf("expected permanent error to fail immediately, got %s", got.Status)
	}
}

func TestRetryRejectsNonFailedTask(t *testing.T) {
	repo := newFakeTaskRepository()
	q := New(repo)
	ctx := context.Background()

	taskID, _ := q.Enqueue(ctx, "blog-1", domain.TaskFullScrape, PriorityNormal, nil)

	err := q.Retry(ctx, taskID)
	if !errors.Is(err, repository.ErrNotFailed) {
		t.Errorf("expected ErrNotFailed for a pending task, got %v", err)
	}
}
