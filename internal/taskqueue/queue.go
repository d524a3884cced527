package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/repository"
)

// PermanentError marks a handler failure the queue should never
// retry, regardless of remaining attempts — outcomes like a private
// or deleted account where another attempt can't change the result.
type PermanentError struct {
	Cause error
}

func (e PermanentError) Error() string { return e.Cause.Error() }
func (e PermanentError) Unwrap() error { return e.Cause }

func isPermanent(err error) bool {
	var permanent PermanentError
	return errors.As(err, &permanent)
}

// Priority levels tasks may be enqueued with. Lower values run first.
const (
	PriorityHigh       = 0
	PriorityAIAnalysis = 3
	PriorityNormal     = 5
	PriorityLow        = 10
)

// Queue is the API handlers, the scheduler, and the HTTP control plane
// call into. It never talks to the store directly — every operation
// goes through repository.TaskRepository so the atomic-claim and
// conditional-insert guarantees live in exactly one place.
type Queue struct {
	repo repository.TaskRepository
}

func New(repo repository.TaskRepository) *Queue {
	return &Queue{repo: repo}
}

// Enqueue creates a task unless a non-terminal one already exists for
// the same (blogID, taskType) pair. Returns the new task id, or ""
// when an existing task made this a no-op.
func (q *Queue) Enqueue(ctx context.Context, blogID string, taskType domain.TaskType, priority int, extra map[string]any) (string, error) {
	payload, err := domain.TaskPayload{}.MarshalPayload(extra)
	if err != nil {
		return "", fmt.Errorf("marshal task payload: %w", err)
	}
	id, err := q.repo.CreateIfAbsent(ctx, blogID, taskType, priority, payload)
	if err != nil {
		return "", fmt.Errorf("enqueue %s task: %w", taskType, err)
	}
	return id, nil
}

// Claim pulls up to limit runnable tasks and marks them running.
func (q *Queue) Claim(ctx context.Context, limit int) ([]domain.Task, error) {
	tasks, err := q.repo.ClaimBatch(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("claim tasks: %w", err)
	}
	return tasks, nil
}

// Complete marks a task done.
func (q *Queue) Complete(ctx context.Context, taskID string) error {
	return q.repo.MarkDone(ctx, taskID)
}

// Fail records a handler failure. When attempts have not reached
// maxAttempts the task is returned to pending with next_retry_at set
// per Backoff(attempts); otherwise it is marked terminally failed.
func (q *Queue) Fail(ctx context.Context, task domain.Task, handlerErr error) error {
	if isPermanent(handlerErr) {
		return q.repo.MarkFailed(ctx, task.ID, handlerErr.Error(), false, nil)
	}
	if task.Attempts < task.MaxAttempts {
		nextRetry := time.Now().UTC().Add(Backoff(task.Attempts))
		return q.repo.MarkFailed(ctx, task.ID, handlerErr.Error(), true, &nextRetry)
	}
	return q.repo.MarkFailed(ctx, task.ID, handlerErr.Error(), false, nil)
}

// FailPermanently marks a task failed regardless of remaining attempts,
// for outcomes the handler knows retrying can never fix (e.g. a
// private or deleted account).
func (q *Queue) FailPermanently(ctx context.Context, taskID string, handlerErr error) error {
	return q.repo.MarkFailed(ctx, taskID, handlerErr.Error(), false, nil)
}

func (q *Queue) Get(ctx context.Context, taskID string) (domain.Task, error) {
	return q.repo.Get(ctx, taskID)
}

func (q *Queue) List(ctx context.Context, filter domain.TaskFilter, limit, offset int) ([]domain.Task, int, error) {
	return q.repo.List(ctx, filter, limit, offset)
}

func (q *Queue) Retry(ctx context.Context, taskID string) error {
	return q.repo.Retry(ctx, taskID)
}

// RecoverStuck reverts tasks that have been running longer than
// olderThanMinutes back to pending (or fails them out if attempts are
// exhausted). ai_analysis tasks are never touched here; see
// RunningAIAnalysisByBatch and the stale-batch retry job instead.
func (q *Queue) RecoverStuck(ctx context.Context, olderThanMinutes int) (int, error) {
	return q.repo.RecoverStuck(ctx, olderThanMinutes)
}

func (q *Queue) MarkRunningBatch(ctx context.Context, taskIDs []string) error {
	return q.repo.MarkRunningBatch(ctx, taskIDs)
}

func (q *Queue) SetPayloadBatchID(ctx context.Context, taskIDs []string, batchID string) error {
	return q.repo.SetPayloadBatchID(ctx, taskIDs, batchID)
}

func (q *Queue) RunningAIAnalysisByBatch(ctx context.Context) (map[string][]domain.Task, error) {
	return q.repo.RunningAIAnalysisByBatch(ctx)
}

func (q *Queue) PendingAIAnalysis(ctx context.Context, limit int) ([]domain.Task, error) {
	return q.repo.PendingAIAnalysis(ctx, limit)
}

func (q *Queue) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error) {
	return q.repo.CountByStatus(ctx)
}
