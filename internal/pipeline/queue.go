package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/pagepulse/pagepulse/internal/logging"
	"github.com/pagepulse/pagepulse/internal/store"
)

// ErrQueueFull is returned by Enqueue when the buffer is at capacity.
// Callers should surface this as backpressure rather than block.
var ErrQueueFull = errors.New("analysis queue is full")

// ErrQueueClosed is returned by Enqueue after Stop.
var ErrQueueClosed = errors.New("analysis queue is closed")

// Queue feeds scan ids to a fixed pool of workers, each driving the Runner.
type Queue struct {
	runner  *Runner
	jobs    chan string
	workers int
	logger  logging.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewQueue(runner *Runner, workers, size int, logger logging.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 16
	}
	return &Queue{
		runner:  runner,
		jobs:    make(chan string, size),
		workers: workers,
		logger:  logger.With(logging.Field{Key: "component", Value: "queue"}),
	}
}

// Start launches the worker pool. Workers exit when the queue is stopped or
// the context is canceled.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	q.logger.Info("workers started", logging.Field{Key: "count", Value: q.workers})
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-q.jobs:
			if !ok {
				return
			}
			if err := q.runner.Run(ctx, id); err != nil {
				q.logger.Warn("scan run ended with error",
					logging.Field{Key: "id", Value: id},
					logging.Field{Key: "error", Value: err.Error()})
			}
		}
	}
}

// Enqueue submits a scan id for processing without blocking.
func (q *Queue) Enqueue(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- id:
		return nil
	default:
		return ErrQueueFull
	}
}

// Requeue re-submits every pending scan in the store. Scans enqueued but not
// yet picked up when the process last stopped stay pending, and the sweeper
// only reclaims processing rows; calling this at startup puts them back in
// line. Returns how many scans were enqueued.
func (q *Queue) Requeue(ctx context.Context, st *store.Store) (int, error) {
	ids, err := st.PendingIDs(ctx)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, id := range ids {
		if err := q.Enqueue(id); err != nil {
			q.logger.Warn("requeueing pending scan",
				logging.Field{Key: "id", Value: id},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		q.logger.Info("pending scans requeued", logging.Field{Key: "count", Value: enqueued})
	}
	return enqueued, nil
}

// Stop closes the queue and waits for in-flight runs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}
