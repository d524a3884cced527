// Package worker runs the Polling Worker: a loop that claims runnable
// tasks from the Task Queue and dispatches each to its handler under
// bounded concurrency.
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/bloglens/intel-service/internal/domain"
	"github.com/bloglens/intel-service/internal/taskqueue"
	"golang.org/x/sync/errgroup"
)

// Handler processes one claimed task to completion and reports the
// outcome by returning nil (success) or an error (handled by the
// poller's retry/backoff logic).
type Handler interface {
	Handle(ctx context.Context, task domain.Task) error
}

// Poller repeatedly claims pending tasks and dispatches them by
// task_type, mirroring the original worker loop: a processing set
// guards against re-claiming tasks still in flight from the previous
// tick, and shutdown races the poll-interval sleep instead of
// interrupting it.
type Poller struct {
	queue        *taskqueue.Queue
	handlers     map[domain.TaskType]Handler
	concurrency  int
	pollInterval time.Duration
	shutdownWait time.Duration
	logger       *log.Logger

	mu            sync.Mutex
	processingIDs map[string]struct{}
	wake          chan struct{}
}

func NewPoller(q *taskqueue.Queue, handlers map[domain.TaskType]Handler, concurrency int, pollInterval time.Duration, logger *log.Logger) *Poller {
	if concurrency <= 0 {
		concurrency = 5
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Poller{
		queue:         q,
		handlers:      handlers,
		concurrency:   concurrency,
		pollInterval:  pollInterval,
		shutdownWait:  30 * time.Second,
		logger:        logger,
		processingIDs: make(map[string]struct{}),
		wake:          make(chan struct{}, 1),
	}
}

// Run blocks until ctx is cancelled. On cancellation it waits up to
// shutdownWait for in-flight tasks to finish before returning. Between
// cancellations it sleeps for pollInterval, or until any in-flight
// task completes and frees a slot, whichever comes sooner.
func (p *Poller) Run(ctx context.Context) {
	group, groupCtx := errgroup.WithContext(context.Background())
	group.SetLimit(p.concurrency)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logf("poller: shutdown requested, waiting up to %s for in-flight tasks", p.shutdownWait)
			done := make(chan error, 1)
			go func() { done <- group.Wait() }()
			select {
			case <-done:
			case <-time.After(p.shutdownWait):
				p.logf("poller: shutdown grace period elapsed, abandoning stragglers")
			}
			return
		case <-ticker.C:
			p.dispatchAvailable(groupCtx, group)
		case <-p.wake:
			p.dispatchAvailable(groupCtx, group)
		}
	}
}

// notifyFreedSlot wakes Run without blocking: if a wake is already
// pending, a second one is redundant since dispatchAvailable will
// observe every freed slot once it runs.
func (p *Poller) notifyFreedSlot() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Poller) dispatchAvailable(ctx context.Context, group *errgroup.Group) {
	free := p.freeSlots()
	if free <= 0 {
		return
	}

	tasks, err := p.queue.Claim(ctx, free)
	if err != nil {
		p.logf("poller: claim batch failed: %v", err)
		return
	}

	for _, task := range tasks {
		task := task
		p.markProcessing(task.ID)
		group.Go(func() error {
			defer p.notifyFreedSlot()
			defer p.unmarkProcessing(task.ID)
			p.process(ctx, task)
			return nil
		})
	}
}

func (p *Poller) process(ctx context.Context, task domain.Task) {
	handler, ok := p.handlers[task.TaskType]
	if !ok {
		p.logf("poller: no handler registered for task_type=%s task=%s", task.TaskType, task.ID)
		_ = p.queue.FailPermanently(ctx, task.ID, errUnregisteredTaskType(task.TaskType))
		return
	}

	if err := handler.Handle(ctx, task); err != nil {
		p.logf("poller: task %s (%s) failed: %v", task.ID, task.TaskType, err)
		if failErr := p.queue.Fail(ctx, task, err); failErr != nil {
			p.logf("poller: failed to record failure for task %s: %v", task.ID, failErr)
		}
		return
	}

	if err := p.queue.Complete(ctx, task.ID); err != nil {
		p.logf("poller: failed to mark task %s done: %v", task.ID, err)
	}
}

func (p *Poller) freeSlots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	free := p.concurrency - len(p.processingIDs)
	if free < 0 {
		return 0
	}
	return free
}

func (p *Poller) markProcessing(id string) {
	p.mu.Lock()
	p.processingIDs[id] = struct{}{}
	p.mu.Unlock()
}

func (p *Poller) unmarkProcessing(id string) {
	p.mu.Lock()
	delete(p.processingIDs, id)
	p.mu.Unlock()
}

func (p *Poller) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}

type unregisteredTaskTypeError struct {
	taskType domain.TaskType
}

func (e unregisteredTaskTypeError) Error() string {
	return "poller: unregistered task type: " + string(e.taskType)
}

func errUnregisteredTaskType(t domain.TaskType) error {
	return unregisteredTaskTypeError{taskType: t}
}
