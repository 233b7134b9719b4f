// Package queue holds match-recording jobs waiting for the single writer.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/teamer/internal/domain/model"
	"github.com/okian/teamer/pkg/metrics"
)

const defaultCapacity = 64

// Job is one match result plus the channel its outcome is sent on.
type Job struct {
	ID          string
	Match       model.MatchResult
	SubmittedAt time.Time

	// ctx is the submitter's context. A job whose submitter gave up before
	// it was dequeued is skipped.
	ctx   context.Context
	reply chan error
}

// Context returns the submitter's context.
func (j Job) Context() context.Context {
	if j.ctx == nil {
		return context.Background()
	}
	return j.ctx
}

// Reply delivers the outcome to the submitter. It never blocks.
func (j Job) Reply(err error) {
	if j.reply == nil {
		return
	}
	select {
	case j.reply <- err:
	default:
	}
}

// NewJob builds a job whose outcome can be awaited on the returned channel.
func NewJob(ctx context.Context, m model.MatchResult) (Job, <-chan error) {
	reply := make(chan error, 1)
	return Job{
		ID:          uuid.NewString(),
		Match:       m,
		SubmittedAt: time.Now(),
		ctx:         ctx,
		reply:       reply,
	}, reply
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job or fails with ErrBackpressure or ErrClosed.
	Enqueue(ctx context.Context, j Job) error
	// Dequeue returns the channel jobs arrive on. It is closed by Close.
	Dequeue(ctx context.Context) <-chan Job
	// Len returns the number of waiting jobs.
	Len(ctx context.Context) int
	// Close stops accepting jobs. Queued jobs stay readable.
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a job without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected()
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case q.jobs <- j:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	default:
		metrics.RecordQueueRejected()
		return fmt.Errorf("%w: %d jobs waiting", ErrBackpressure, len(q.jobs))
	}
}

// Submit enqueues m and waits for the writer's outcome. If ctx ends first
// the job may still be applied later unless it has not been dequeued yet.
func (q *InMemoryQueue) Submit(ctx context.Context, m model.MatchResult) error {
	j, reply := NewJob(ctx, m)
	if err := q.Enqueue(ctx, j); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue returns the job channel.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	return q.jobs
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	n := len(q.jobs)
	metrics.UpdateQueueSize(n)
	return n
}

// Close stops new jobs. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
