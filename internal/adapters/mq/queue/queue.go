// Package queue buffers gate events between the HTTP intake and the workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/pkg/metrics"
)

const defaultCapacity = 1024

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds an event without blocking. It fails with ErrFull when the
	// buffer is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, e model.GateEvent) error

	// Dequeue returns a channel of queued events. The channel is closed once
	// the queue is closed and drained, or when ctx is done.
	Dequeue(ctx context.Context) <-chan model.GateEvent

	// Len returns the number of buffered events.
	Len() int

	// Close stops intake. Buffered events remain available to Dequeue.
	Close() error
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	events   chan model.GateEvent
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan model.GateEvent, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	q.observe()
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e model.GateEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.events <- e:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue implements Queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.GateEvent {
	out := make(chan model.GateEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-q.events:
				if !ok {
					return
				}
				select {
				case out <- e:
					metrics.RecordQueueDequeue()
					q.observe()
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len implements Queue.
func (q *InMemoryQueue) Len() int {
	return len(q.events)
}

// Close implements Queue. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) observe() {
	size := len(q.events)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
