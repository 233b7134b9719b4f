// Package worker runs the single writer that applies queued match results.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/teamer/internal/adapters/mq/queue"
	"github.com/okian/teamer/internal/domain/model"
	"github.com/okian/teamer/pkg/logger"
	"github.com/okian/teamer/pkg/metrics"
)

// Applier performs the store mutation for one match.
type Applier interface {
	ApplyMatch(ctx context.Context, m model.MatchResult) error
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(ctx context.Context, m model.MatchResult) error

// ApplyMatch calls f.
func (f ApplierFunc) ApplyMatch(ctx context.Context, m model.MatchResult) error { return f(ctx, m) }

// Queue defines how the writer receives jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Writer applies jobs one at a time, in arrival order. Exactly one Writer
// must consume a queue.
type Writer struct {
	queue   Queue
	applier Applier
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWriter creates a writer with configuration options.
func NewWriter(q Queue, a Applier, opts ...Option) *Writer {
	w := &Writer{
		queue:    q,
		applier:  a,
		name:     "writer",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes jobs until the queue is closed and drained, Shutdown is
// called, or ctx ends.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			w.drain(ctx, jobs)
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// drain handles jobs already queued without waiting for new ones.
func (w *Writer) drain(ctx context.Context, jobs <-chan queue.Job) {
	for {
		select {
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		default:
			return
		}
	}
}

// Done is closed once Run has returned.
func (w *Writer) Done() <-chan struct{} { return w.done }

// Shutdown asks Run to finish queued jobs and waits for it.
func (w *Writer) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *Writer) process(ctx context.Context, j queue.Job) {
	// The submitter stopped waiting before the job started: nothing was
	// written, so report that rather than apply a result nobody sees.
	if err := j.Context().Err(); err != nil {
		w.logger.Warn(ctx, "skipping abandoned record job",
			logger.String("job", j.ID),
			logger.String("event", j.Match.EventID),
		)
		j.Reply(err)
		return
	}

	start := time.Now()
	metrics.SetWorkerBusy(true)
	err := w.applier.ApplyMatch(ctx, j.Match)
	metrics.SetWorkerBusy(false)
	metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "record job failed",
			logger.String("job", j.ID),
			logger.String("event", j.Match.EventID),
			logger.Error(err),
		)
	} else {
		w.logger.Debug(ctx, "record job applied",
			logger.String("job", j.ID),
			logger.String("event", j.Match.EventID),
			logger.Duration("waited", start.Sub(j.SubmittedAt)),
		)
	}
	j.Reply(err)
}
