package queue

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ROJSUWAN/n8n-video-renderer/domain/jobs"
)

// Memory is an in-process queue: a buffered channel drained by a fixed pool
// of worker goroutines. Queued tasks are lost on restart.
type Memory struct {
	ch      chan jobs.RenderPayload
	workers int
	logger  zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewMemory creates a queue holding up to size pending tasks
func NewMemory(size, workers int, logger zerolog.Logger) *Memory {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Memory{
		ch:      make(chan jobs.RenderPayload, size),
		workers: workers,
		logger:  logger,
	}
}

// Enqueue implements jobs.Queue. It never blocks.
func (q *Memory) Enqueue(ctx context.Context, p jobs.RenderPayload) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return jobs.ErrQueueClosed
	}
	select {
	case q.ch <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return jobs.ErrQueueFull
	}
}

// Start launches the workers. Handlers run with ctx, so cancelling it aborts
// in-flight renders; use Shutdown to drain instead.
func (q *Memory) Start(ctx context.Context, handler jobs.Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func(worker int) {
			defer q.wg.Done()
			for p := range q.ch {
				q.run(ctx, worker, handler, p)
			}
		}(i)
	}
	q.logger.Info().Int("workers", q.workers).Int("capacity", cap(q.ch)).Msg("render workers started")
}

func (q *Memory) run(ctx context.Context, worker int, handler jobs.Handler, p jobs.RenderPayload) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error().Interface("panic", r).Str("job_id", p.JobID).Msg("render worker recovered from panic")
		}
	}()
	if err := handler(ctx, p); err != nil {
		q.logger.Error().Err(err).Int("worker", worker).Str("job_id", p.JobID).Msg("render task failed")
	}
}

// Pending returns the number of queued tasks not yet picked up
func (q *Memory) Pending() int {
	return len(q.ch)
}

// Shutdown stops accepting tasks and waits for queued and in-flight tasks
// to finish, or for ctx to expire.
func (q *Memory) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ jobs.Queue = (*Memory)(nil)
