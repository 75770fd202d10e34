package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/glicko2/internal/domain/model"
	"github.com/okian/glicko2/pkg/engine"
	"github.com/okian/glicko2/pkg/glicko2"
	"github.com/okian/glicko2/pkg/logger"
	"github.com/okian/glicko2/pkg/metrics"
)

// Report abstracts what workers read off the queue.
type Report = model.MatchReport

// Recorder is the part of the rating engine a worker writes to.
type Recorder interface {
	RegisterResultAt(ctx context.Context, a, b engine.Handle, result glicko2.MatchResult, t time.Time) error
}

// Queue defines how workers receive reports.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Report
}

// acker is implemented by queues that track consumption.
type acker interface {
	Ack()
}

// InMemoryWorker drains a queue into a Recorder.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	name     string

	applied atomic.Int64
	failed  atomic.Int64
	observe func(Report, error)

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		recorder: recorder,
		name:     "worker",
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	w.logger = w.logger.Named(w.name)
	return w
}

// Run applies reports until the queue is closed and drained, or ctx is done.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	reports := w.queue.Dequeue(ctx)
	ack, _ := w.queue.(acker)
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-reports:
			if !ok {
				return
			}
			if ack != nil {
				ack.Ack()
			}
			w.process(ctx, r)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Applied and Failed count processed reports by outcome.
func (w *InMemoryWorker) Applied() int64 { return w.applied.Load() }
func (w *InMemoryWorker) Failed() int64  { return w.failed.Load() }

// process applies one report. Failures are logged and counted, never retried.
func (w *InMemoryWorker) process(ctx context.Context, r Report) { //nolint:gocritic // hugeParam: Report is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	err := w.recorder.RegisterResultAt(ctx, r.PlayerA, r.PlayerB, r.Result, r.At)
	if err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		w.logger.Warn(ctx, "report not applied",
			logger.String("report_id", r.ID),
			logger.Error(err),
		)
	} else {
		w.applied.Add(1)
	}
	if w.observe != nil {
		w.observe(r, err)
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	started sync.Once
	logger  logger.Logger
}

// NewPool creates workerCount workers (at least one) sharing queue and recorder.
func NewPool(workerCount int, queue Queue, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		logger:  logger.Nop(),
	}
	for i := range pool.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, recorder, wopts...)
	}
	pool.logger = pool.workers[0].logger
	return pool
}

// Start runs every worker in its own goroutine. Calling it again is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.started.Do(func() {
		for _, w := range p.workers {
			go w.Run(ctx)
		}
		metrics.UpdateWorkerActiveCount(len(p.workers))
	})
}

// Wait blocks until every worker has returned, which happens once the queue
// is closed and drained. It gives up when ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("wait for workers: %w", ctx.Err())
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return nil
}

// Applied sums the reports applied by every worker.
func (p *Pool) Applied() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Applied()
	}
	return n
}

// Failed sums the reports every worker failed to apply.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}
