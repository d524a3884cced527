// Package scheduler wires the recurring background jobs — batch
// polling, stuck-task recovery, stale-batch retry, embedding backfill,
// freshness rescrape, weekly cleanup, plus the taxonomy
// maintenance jobs this port adds.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bloglens/intel-service/internal/aipipeline"
	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/embeddings"
	"github.com/bloglens/intel-service/internal/objectstorage"
	"github.com/bloglens/intel-service/internal/repository"
	"github.com/bloglens/intel-service/internal/taskqueue"
	"github.com/bloglens/intel-service/internal/taxonomy"
	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron   *cron.Cron
	logger *log.Logger

	queue      *taskqueue.Queue
	blogs      repository.BlogRepository
	pipeline   *aipipeline.Pipeline
	matcher    *taxonomy.Matcher
	embedder   *embeddings.Service
	store      *objectstorage.Store

	staleBatchThreshold time.Duration
	recoverStuckMinutes int
	freshnessWindowHrs  int
}

type Config struct {
	StaleBatchThresholdHours int
	RecoverStuckMinutes      int
	FreshnessWindowHours     int
}

func New(
	queue *taskqueue.Queue,
	blogs repository.BlogRepository,
	pipeline *aipipeline.Pipeline,
	matcher *taxonomy.Matcher,
	embedder *embeddings.Service,
	store *objectstorage.Store,
	cfg Config,
	logger *log.Logger,
) *Scheduler {
	return &Scheduler{
		cron:                cron.New(cron.WithLocation(time.UTC)),
		logger:              logger,
		queue:               queue,
		blogs:               blogs,
		pipeline:            pipeline,
		matcher:             matcher,
		embedder:            embedder,
		store:               store,
		staleBatchThreshold: time.Duration(cfg.StaleBatchThresholdHours) * time.Hour,
		recoverStuckMinutes: cfg.RecoverStuckMinutes,
		freshnessWindowHrs:  cfg.FreshnessWindowHours,
	}
}

// Start runs the one-time backfill job, registers every recurring job,
// and begins the cron clock. Returns an error only if a cron
// expression fails to parse, which would be a programming error caught
// long before this runs in production.
func (s *Scheduler) Start(ctx context.Context) error {
	go s.backfillCityMatching(ctx)

	jobs := []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{"poll_batches", "@every 15m", s.pollBatches},
		{"recover_tasks", "@every 10m", s.recoverTasks},
		{"retry_stale_batches", "@every 2h", s.retryStaleBatches},
		{"retry_missing_embeddings", "@every 1h", s.retryMissingEmbeddings},
		{"schedule_updates", "0 3 * * *", s.scheduleUpdates},
		{"cleanup", "0 4 * * 0", s.cleanup},
		{"retry_taxonomy_mappings", "@every 2h", s.retryTaxonomyMappings},
		{"audit_taxonomy_drift", "0 5 * * *", s.auditTaxonomyDrift},
	}

	for _, job := range jobs {
		job := job
		_, err := s.cron.AddFunc(job.spec, func() {
			s.logf("scheduler: running job %s", job.name)
			job.run(ctx)
		})
		if err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) pollBatches(ctx context.Context) {
	ready, tasks, err := s.pipeline.ShouldSubmit(ctx)
	if err != nil {
		s.logf("poll_batches: check submission trigger failed: %v", err)
		return
	}
	if ready {
		if _, err := s.pipeline.Submit(ctx, tasks); err != nil {
			s.logf("poll_batches: submit batch failed: %v", err)
		}
	}

	grouped, err := s.queue.RunningAIAnalysisByBatch(ctx)
	if err != nil {
		s.logf("poll_batches: list running batches failed: %v", err)
		return
	}
	for batchID, tasksForBatch := range grouped {
		handle, err := s.pipeline.Poll(ctx, batchID)
		if err != nil {
			s.logf("poll_batches: poll batch %s failed: %v", batchID, err)
			continue
		}
		if handle.Status != aipipeline.BatchCompleted && handle.Status != aipipeline.BatchExpired && handle.Status != aipipeline.BatchFailed {
			continue
		}

		tasksByBlog := make(map[string][]domain.Task)
		for _, t := range tasksForBatch {
			if t.BlogID == nil {
				continue
			}
			tasksByBlog[*t.BlogID] = append(tasksByBlog[*t.BlogID], t)
		}
		if err := s.pipeline.Reconcile(ctx, handle, tasksByBlog); err != nil {
			s.logf("poll_batches: reconcile batch %s failed: %v", batchID, err)
			continue
		}
		for blogID := range tasksByBlog {
			blog, err := s.blogs.GetByID(ctx, blogID)
			if err != nil || blog.AIInsights == nil {
				continue
			}
			if err := s.matcher.MatchAll(ctx, blogID, *blog.AIInsights); err != nil {
				s.logf("poll_batches: taxonomy match for blog %s failed: %v", blogID, err)
			}
			// Embedding failure is logged, not fatal: a blog that misses
			// its embedding here is picked up by retry_missing_embeddings.
			if err := s.embedder.GenerateFor(ctx, blog); err != nil {
				s.logf("poll_batches: generate embedding for blog %s failed: %v", blogID, err)
			}
		}
	}
}

// backfillCityMatching runs once at startup, not on the cron clock: it
// resolves city for every already-analyzed blog that predates city
// matching or missed it on a previous, since-fixed run.
func (s *Scheduler) backfillCityMatching(ctx context.Context) {
	n, err := s.matcher.BackfillCityMatching(ctx, 1000)
	if err != nil {
		s.logf("backfill_city_matching: %v", err)
		return
	}
	if n > 0 {
		s.logf("backfill_city_matching: matched %d blogs", n)
	}
}

func (s *Scheduler) recoverTasks(ctx context.Context) {
	count, err := s.queue.RecoverStuck(ctx, s.recoverStuckMinutes)
	if err != nil {
		s.logf("recover_tasks: %v", err)
		return
	}
	if count > 0 {
		s.logf("recover_tasks: recovered %d stuck tasks", count)
	}
}

// retryStaleBatches handles ai_analysis tasks whose batch has been
// running longer than staleBatchThreshold without reaching a terminal
// state — the provider's own completion_window is 24h, so this
// threshold (26h by default) gives 2h of grace past the worst case
// before treating the batch as lost and retrying from scratch.
func (s *Scheduler) retryStaleBatches(ctx context.Context) {
	grouped, err := s.queue.RunningAIAnalysisByBatch(ctx)
	if err != nil {
		s.logf("retry_stale_batches: %v", err)
		return
	}
	for batchID, tasks := range grouped {
		var oldest time.Time
		for _, t := range tasks {
			started := t.CreatedAt
			if t.StartedAt != nil {
				started = *t.StartedAt
			}
			if oldest.IsZero() || started.Before(oldest) {
				oldest = started
			}
		}
		if time.Since(oldest) < s.staleBatchThreshold {
			continue
		}
		s.logf("retry_stale_batches: batch %s stale, resetting %d tasks to pending", batchID, len(tasks))
		for _, t := range tasks {
			if err := s.queue.Fail(ctx, domain.Task{ID: t.ID, Attempts: 0, MaxAttempts: t.MaxAttempts}, errStaleBatch); err != nil {
				s.logf("retry_stale_batches: reset task %s failed: %v", t.ID, err)
			}
		}
	}
}

func (s *Scheduler) retryMissingEmbeddings(ctx context.Context) {
	n, err := s.embedder.RetryMissing(ctx, 200)
	if err != nil {
		s.logf("retry_missing_embeddings: %v", err)
		return
	}
	if n > 0 {
		s.logf("retry_missing_embeddings: embedded %d blogs", n)
	}
}

func (s *Scheduler) scheduleUpdates(ctx context.Context) {
	blogs, err := s.blogs.StaleForRescrape(ctx, s.freshnessWindowHrs, 500)
	if err != nil {
		s.logf("schedule_updates: %v", err)
		return
	}
	for _, blog := range blogs {
		if _, err := s.queue.Enqueue(ctx, blog.ID, domain.TaskFullScrape, taskqueue.PriorityLow, nil); err != nil {
			s.logf("schedule_updates: enqueue rescrape for blog %s failed: %v", blog.ID, err)
		}
	}
}

func (s *Scheduler) cleanup(ctx context.Context) {
	if s.store == nil {
		return
	}
	removed, err := s.store.CleanupOrphans(ctx)
	if err != nil {
		s.logf("cleanup: %v", err)
		return
	}
	if removed > 0 {
		s.logf("cleanup: removed %d orphaned media directories", removed)
	}
}

func (s *Scheduler) retryTaxonomyMappings(ctx context.Context) {
	n, err := s.matcher.RetryMissingMappings(ctx, 200)
	if err != nil {
		s.logf("retry_taxonomy_mappings: %v", err)
		return
	}
	if n > 0 {
		s.logf("retry_taxonomy_mappings: matched %d blogs", n)
	}
}

func (s *Scheduler) auditTaxonomyDrift(ctx context.Context) {
	report, err := s.matcher.AuditDrift(ctx, 500)
	if err != nil {
		s.logf("audit_taxonomy_drift: %v", err)
		return
	}
	if len(report.UnresolvedNames) > 0 {
		s.logf("audit_taxonomy_drift: %d category names no longer resolve: %v", len(report.UnresolvedNames), report.UnresolvedNames)
	}
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

var errStaleBatch = fmt.Errorf("batch exceeded stale threshold without reaching a terminal state")
