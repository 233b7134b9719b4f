package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/teamer/internal/domain/model"
)

func match(id string) model.MatchResult {
	return model.MatchResult{EventID: id, Winners: model.IDs("1"), Losers: model.IDs("2")}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	j, _ := NewJob(ctx, match("e1"))
	if err := q.Enqueue(ctx, j); err != nil {
		t.Fatalf("expected enqueue to succeed: %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.Match.EventID != "e1" {
		t.Errorf("expected e1, got %v", got.Match.EventID)
	}
	if got.ID == "" {
		t.Error("expected job id")
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Backpressure(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		j, _ := NewJob(ctx, match(fmt.Sprintf("e%d", i)))
		if err := q.Enqueue(ctx, j); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	j, _ := NewJob(ctx, match("overflow"))
	if err := q.Enqueue(ctx, j); !errors.Is(err, ErrBackpressure) {
		t.Errorf("expected ErrBackpressure, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_Submit(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()
	want := errors.New("apply failed")

	go func() {
		for j := range q.Dequeue(ctx) {
			if j.Match.EventID == "bad" {
				j.Reply(want)
				continue
			}
			j.Reply(nil)
		}
	}()
	defer func() { _ = q.Close() }()

	if err := q.Submit(ctx, match("good")); err != nil {
		t.Errorf("expected success, got %v", err)
	}
	if err := q.Submit(ctx, match("bad")); !errors.Is(err, want) {
		t.Errorf("expected apply error, got %v", err)
	}
}

func TestInMemoryQueue_SubmitHonoursContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Nobody consumes, so only the context can end the wait.
	if err := q.Submit(ctx, match("e1")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	j := <-q.Dequeue(context.Background())
	if j.Context().Err() == nil {
		t.Error("expected the job to carry the expired submitter context")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	const producers, perProducer = 10, 10
	q := NewInMemoryQueue(WithCapacity(producers * perProducer))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for k := 0; k < perProducer; k++ {
				j, _ := NewJob(ctx, match(fmt.Sprintf("e%d-%d", id, k)))
				if err := q.Enqueue(ctx, j); err != nil {
					t.Errorf("enqueue: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	if l := q.Len(ctx); l != producers*perProducer {
		t.Errorf("expected %d jobs, got %d", producers*perProducer, l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	j, _ := NewJob(ctx, match("e1"))
	if err := q.Enqueue(ctx, j); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}

	late, _ := NewJob(ctx, match("late"))
	if err := q.Enqueue(ctx, late); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Jobs queued before Close are still delivered, then the channel closes.
	var seen []string
	for job := range q.Dequeue(ctx) {
		seen = append(seen, job.Match.EventID)
	}
	if len(seen) != 1 || seen[0] != "e1" {
		t.Errorf("expected [e1], got %v", seen)
	}
}

func TestJobReplyNeverBlocks(t *testing.T) {
	j, reply := NewJob(context.Background(), match("e1"))
	j.Reply(nil)
	j.Reply(errors.New("second reply is dropped"))
	if err := <-reply; err != nil {
		t.Errorf("expected first reply, got %v", err)
	}

	var zero Job
	zero.Reply(nil)
	if zero.Context() == nil {
		t.Error("zero job should still expose a context")
	}
}
