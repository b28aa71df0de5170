// Package dedupe tracks keys that have already been handled so repeated
// triggers of the same job within its period are no-ops.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultMaxSize bounds the number of remembered keys.
const DefaultMaxSize = 1_024

// Deduper records handled keys to ensure at-most-once delivery.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a failed delivery can be retried.
	Unrecord(ctx context.Context, key string)

	Size() int
}

// Key builds the dedupe key of a job for the calendar day of t.
func Key(job string, t time.Time) string {
	return job + ":" + t.Format("2006-01-02")
}

// Memory is a bounded in-memory Deduper. When full, the oldest key is evicted.
type Memory struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List // oldest at front
	seen    map[string]*list.Element
}

// New creates a Memory deduper.
func New(opts ...Option) *Memory {
	d := &Memory{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.order = list.New()
	d.seen = make(map[string]*list.Element)
	return d
}

// SeenAndRecord implements Deduper.
func (d *Memory) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 {
		for d.order.Len() >= d.maxSize {
			oldest := d.order.Front()
			d.order.Remove(oldest)
			delete(d.seen, oldest.Value.(string))
		}
	}
	d.seen[key] = d.order.PushBack(key)
	return false
}

// Unrecord implements Deduper.
func (d *Memory) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
	}
}

// Size implements Deduper.
func (d *Memory) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
