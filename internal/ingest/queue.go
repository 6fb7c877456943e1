package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Job is one watched file waiting to be ingested.
type Job struct {
	Path        string
	SubmittedAt time.Time
}

// JobFunc handles one job. ctx carries the per-job timeout.
type JobFunc func(ctx context.Context, job Job)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// FileQueue runs jobs on a fixed set of workers.
type FileQueue struct {
	handle  JobFunc
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type QueueOption func(*FileQueue)

func QueueWorkers(n int) QueueOption {
	return func(q *FileQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func QueueSize(n int) QueueOption {
	return func(q *FileQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func JobTimeout(d time.Duration) QueueOption {
	return func(q *FileQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewFileQueue starts the workers immediately. Call Shutdown to drain them.
func NewFileQueue(handle JobFunc, logger *slog.Logger, opts ...QueueOption) *FileQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &FileQueue{
		handle:  handle,
		logger:  logger,
		workers: 1,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *FileQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.start", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					q.run(ctx, workerID, job)
					cancel()
				}

				q.logger.Debug("queue.worker.stop", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *FileQueue) run(ctx context.Context, workerID int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("queue.job.panic", "worker_id", workerID, "path", job.Path, "panic", r)
		}
	}()
	q.logger.Debug("queue.job.start", "worker_id", workerID, "path", job.Path,
		"wait_ms", time.Since(job.SubmittedAt).Milliseconds())
	q.handle(ctx, job)
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *FileQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones until ctx is done.
func (q *FileQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
