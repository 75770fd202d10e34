// Package queue buffers match reports between submission and the ingestion
// workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/glicko2/internal/domain/model"
	"github.com/okian/glicko2/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10_000
)

// Report is the payload type flowing through the queue.
type Report = model.MatchReport

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a report without blocking. It fails with ErrFull when
	// the queue is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, r Report) error

	// Dequeue returns the channel reports are delivered on. It is closed
	// once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Report

	// Len returns the current number of queued reports.
	Len(ctx context.Context) int

	// Close stops accepting reports. Buffered reports remain readable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	reports  chan Report
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	// Apply all options
	for _, opt := range opts {
		opt(q)
	}

	q.reports = make(chan Report, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a report to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Report) error {
	// The read lock keeps Close from closing the channel under a send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		return err
	}

	select {
	case q.reports <- r:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		return ErrFull
	}
}

// Dequeue returns the channel reports are delivered on.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Report {
	return q.reports
}

// Ack records that a consumer took a report off the queue.
func (q *InMemoryQueue) Ack() {
	metrics.RecordQueueDequeue()
	q.observe()
}

// Len returns the current number of queued reports.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.observe()
}

func (q *InMemoryQueue) observe() int {
	size := len(q.reports)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.reports)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
