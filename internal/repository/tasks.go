package repository

import (
	"context"
	"time"

	"github.com/bloglens/intel-service/internal/domain"
)

// TaskRepository is the storage-level contract the Task Queue API is
// built on. Every method that mutates task state does so in a single
// statement against the store; no method reads a row, computes a new
// value in Go, and writes it back (see ClaimBatch in particular).
type TaskRepository interface {
	// CreateIfAbsent inserts a new pending task only when no
	// non-terminal task exists for (blogID, taskType). Returns the
	// new id, or "" when skipped. blogID may be empty for discover
	// tasks with no associated blog.
	CreateIfAbsent(ctx context.Context, blogID string, taskType domain.TaskType, priority int, payload []byte) (string, error)

	// ClaimBatch atomically moves up to limit eligible pending tasks
	// to running, ordered by priority ASC, created_at ASC, and
	// increments their attempt counters in the same statement.
	ClaimBatch(ctx context.Context, limit int) ([]domain.Task, error)

	// MarkDone transitions a task to done and stamps completed_at.
	MarkDone(ctx context.Context, taskID string) error

	// MarkFailed transitions a task to pending (with nextRetryAt set)
	// or failed (terminal), per the caller's retry decision. The
	// caller computes nextRetryAt; this method performs the single
	// conditional UPDATE.
	MarkFailed(ctx context.Context, taskID string, errMessage string, retry bool, nextRetryAt *time.Time) error

	Get(ctx context.Context, taskID string) (domain.Task, error)
	List(ctx context.Context, filter domain.TaskFilter, limit, offset int) ([]domain.Task, int, error)

	// Retry resets a failed task back to pending without touching
	// attempts. Returns ErrNotFailed if the task isn't in failed.
	Retry(ctx context.Context, taskID string) error

	// RecoverStuck reverts running full_scrape/discover tasks whose
	// started_at predates the threshold back to pending (or fails
	// them if attempts are exhausted). Returns the count recovered.
	// ai_analysis is deliberately excluded — it has its own recovery
	// path via stale-batch retry.
	RecoverStuck(ctx context.Context, olderThanMinutes int) (int, error)

	// MarkRunningBatch transitions the given pending ai_analysis tasks
	// to running in one statement, right after a batch submission.
	MarkRunningBatch(ctx context.Context, taskIDs []string) error

	// SetPayloadBatchID stamps payload.batch_id on every listed task
	// in one round trip, used right after a batch submission.
	SetPayloadBatchID(ctx context.Context, taskIDs []string, batchID string) error

	// RunningAIAnalysisByBatch groups running ai_analysis tasks by
	// their payload.batch_id.
	RunningAIAnalysisByBatch(ctx context.Context) (map[string][]domain.Task, error)

	// PendingAIAnalysis returns up to limit pending ai_analysis tasks
	// ordered by created_at ASC, for the batch-submission trigger.
	PendingAIAnalysis(ctx context.Context, limit int) ([]domain.Task, error)

	// CountByStatus powers the health endpoint's running/pending counts.
	CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error)
}
