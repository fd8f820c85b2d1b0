// Package queue defines the contract for enqueuing and consuming interactions.
//
// Implementations may use channels or more advanced structures. The MVP
// will start with an in-memory bounded queue.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/nazjaz/shortlist/internal/domain/model"
	"github.com/nazjaz/shortlist/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 100000
	defaultBufferSize    = 100000
)

// Interaction represents the payload type flowing through the queue.
// Using the model.Interaction type for type safety.
type Interaction = model.Interaction

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an interaction to the queue.
	// Returns false if the queue is full and the interaction was not enqueued.
	Enqueue(ctx context.Context, in Interaction) bool

	// Dequeue returns a channel that will receive interactions as they become available.
	// The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Interaction

	// Len returns the current number of queued interactions.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new interactions can be enqueued and the dequeue channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	interactions chan Interaction
	capacity     int
	bufferSize   int
	mu           sync.RWMutex
	closed       bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}

	// Apply all options
	for _, opt := range opts {
		opt(q)
	}

	// Initialize the channel with the configured buffer size
	q.interactions = make(chan Interaction, q.bufferSize)

	// Initialize metrics
	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds an interaction to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, in Interaction) bool {
	start := time.Now()
	defer func() {
		metrics.RecordQueueLatency(float64(time.Since(start).Milliseconds()))
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	// Check if we're at capacity
	if len(q.interactions) >= q.capacity {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return false
	}

	select {
	case q.interactions <- in:
		metrics.RecordQueueEnqueue()
		currentSize := len(q.interactions)
		metrics.UpdateQueueSize(currentSize)
		metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false // context cancelled
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false // queue is full
	}
}

// Dequeue returns a channel that will receive interactions as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Interaction {
	// Wrap the channel to track dequeue metrics
	dequeueChan := make(chan Interaction)
	go func() {
		defer close(dequeueChan)
		for in := range q.interactions {
			select {
			case dequeueChan <- in:
				metrics.RecordQueueDequeue()
				currentSize := len(q.interactions)
				metrics.UpdateQueueSize(currentSize)
				metrics.UpdateQueueUtilization(float64(currentSize) / float64(q.capacity))
			case <-ctx.Done():
				return
			}
		}
	}()
	return dequeueChan
}

// Len returns the current number of queued interactions.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.interactions)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil // already closed
	}

	// Close the channel to signal consumers to stop
	close(q.interactions)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
