package fanout

import (
	"context"
	"sync"
	"time"

	"github.com/okian/devpulse/pkg/metrics"
)

const defaultQueueCapacity = 256

// task is one upstream call waiting for a worker.
type task struct {
	ctx      context.Context
	timeout  time.Duration
	index    int
	call     Call
	enqueued time.Time
	results  chan<- indexed
}

// queue is a bounded, non-blocking task buffer.
type queue struct {
	tasks    chan *task
	capacity int

	mu     sync.RWMutex
	closed bool
}

func newQueue(capacity int) *queue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	q := &queue{
		tasks:    make(chan *task, capacity),
		capacity: capacity,
	}
	metrics.UpdateQueueCapacity(capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// enqueue adds t without blocking.
func (q *queue) enqueue(t *task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("fanout_queue", "closed")
		return ErrQueueClosed
	}

	select {
	case q.tasks <- t:
		q.observe()
		return nil
	default:
		metrics.RecordErrorByComponent("fanout_queue", "queue_full")
		return ErrQueueFull
	}
}

// dequeue exposes the task stream; it is closed by close().
func (q *queue) dequeue() <-chan *task {
	return q.tasks
}

func (q *queue) len() int {
	return len(q.tasks)
}

func (q *queue) observe() {
	size := len(q.tasks)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	close(q.tasks)
	q.closed = true
}
