package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/teamer/internal/adapters/mq/queue"
	"github.com/okian/teamer/internal/adapters/mq/worker"
	"github.com/okian/teamer/internal/domain/model"
	logging "github.com/okian/teamer/pkg/logger"
)

// recordingApplier remembers applied matches and tracks overlap.
type recordingApplier struct {
	mu       sync.Mutex
	applied  []string
	fail     map[string]error
	inFlight int
	overlap  bool
	delay    time.Duration
}

func newRecordingApplier() *recordingApplier {
	return &recordingApplier{fail: map[string]error{}}
}

func (r *recordingApplier) ApplyMatch(ctx context.Context, m model.MatchResult) error {
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > 1 {
		r.overlap = true
	}

	delay := r.delay
	r.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight--
	if err := r.fail[m.EventID]; err != nil {
		return err
	}
	r.applied = append(r.applied, m.EventID)
	return nil
}

func (r *recordingApplier) set(fn func(*recordingApplier)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

func (r *recordingApplier) snapshot() ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.applied))
	copy(out, r.applied)
	return out, r.overlap
}

func result(id string) model.MatchResult {
	return model.MatchResult{EventID: id, Winners: model.IDs("1"), Losers: model.IDs("2")}
}

func TestWriter(t *testing.T) {
	convey.Convey("Given a queue and a single writer", t, func() {
		_ = logging.Init(logging.WithLevel("error"))

		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		applier := newRecordingApplier()
		w := worker.NewWriter(q, applier, worker.WithName("test-writer"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a match is submitted", func() {
			err := q.Submit(ctx, result("e1"))

			convey.Convey("Then the submitter sees the outcome after it is applied", func() {
				convey.So(err, convey.ShouldBeNil)
				applied, _ := applier.snapshot()
				convey.So(applied, convey.ShouldResemble, []string{"e1"})
			})
		})

		convey.Convey("When applying fails", func() {
			boom := errors.New("store unavailable")
			applier.set(func(r *recordingApplier) { r.fail["bad"] = boom })
			err := q.Submit(ctx, result("bad"))

			convey.Convey("Then the error reaches the submitter", func() {
				convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When many callers submit at once", func() {
			applier.set(func(r *recordingApplier) { r.delay = time.Millisecond })
			var wg sync.WaitGroup
			errs := make(chan error, 20)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs <- q.Submit(ctx, result(fmt.Sprintf("e%d", i)))
				}(i)
			}
			wg.Wait()
			close(errs)

			convey.Convey("Then every job is applied exactly once and never concurrently", func() {
				for err := range errs {
					convey.So(err, convey.ShouldBeNil)
				}
				applied, overlap := applier.snapshot()
				convey.So(len(applied), convey.ShouldEqual, 20)
				convey.So(overlap, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the writer shuts down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)

			convey.Convey("Then Run has returned", func() {
				select {
				case <-w.Done():
				default:
					convey.So("writer still running", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestWriterDrainsOnClose(t *testing.T) {
	convey.Convey("Given jobs queued before the writer starts", t, func() {
		_ = logging.Init(logging.WithLevel("error"))

		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		applier := newRecordingApplier()
		ctx := context.Background()

		replies := make([]<-chan error, 0, 3)
		for _, id := range []string{"a", "b", "c"} {
			j, reply := queue.NewJob(ctx, result(id))
			convey.So(q.Enqueue(ctx, j), convey.ShouldBeNil)
			replies = append(replies, reply)
		}
		convey.So(q.Close(), convey.ShouldBeNil)

		w := worker.NewWriter(q, worker.ApplierFunc(applier.ApplyMatch))
		w.Run(ctx)

		convey.Convey("Then they are applied in arrival order and Run returns", func() {
			applied, _ := applier.snapshot()
			convey.So(applied, convey.ShouldResemble, []string{"a", "b", "c"})
			for _, r := range replies {
				convey.So(<-r, convey.ShouldBeNil)
			}
		})
	})
}

func TestWriterSkipsAbandonedJobs(t *testing.T) {
	convey.Convey("Given a job whose submitter already gave up", t, func() {
		_ = logging.Init(logging.WithLevel("error"))

		q := queue.NewInMemoryQueue()
		applier := newRecordingApplier()
		sctx, cancel := context.WithCancel(context.Background())
		j, reply := queue.NewJob(sctx, result("gone"))
		convey.So(q.Enqueue(sctx, j), convey.ShouldBeNil)
		cancel()
		convey.So(q.Close(), convey.ShouldBeNil)

		worker.NewWriter(q, applier).Run(context.Background())

		convey.Convey("Then nothing is applied and the reply carries the cancellation", func() {
			applied, _ := applier.snapshot()
			convey.So(applied, convey.ShouldBeEmpty)
			convey.So(errors.Is(<-reply, context.Canceled), convey.ShouldBeTrue)
		})
	})
}
