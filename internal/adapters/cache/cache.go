// Package cache memoizes aggregation results per window and time epoch.
//
// The key of a request is (windowDays, floor(now/ttl)): requests in the same
// epoch share one computation, and entries from older epochs are purged
// whenever the cache is touched. Concurrent misses for the same key are
// coalesced into a single computation.
package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/devpulse/pkg/metrics"
)

// DefaultTTL is the default epoch length.
const DefaultTTL = 5 * time.Minute

// ErrInvalidTTL is returned by New when the ttl is not positive.
var ErrInvalidTTL = errors.New("cache ttl must be positive")

// Key identifies one memoized result.
type Key struct {
	WindowDays int
	Epoch      int64
}

func (k Key) String() string {
	return strconv.Itoa(k.WindowDays) + "@" + strconv.FormatInt(k.Epoch, 10)
}

// Option applies a configuration option to the Cache.
type Option[V any] func(*Cache[V])

// WithClock overrides the time source.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache is an epoch-keyed read-through cache.
type Cache[V any] struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.Mutex
	entries map[Key]V
	// generation advances on Purge so in-flight computations started
	// before it neither store nor share their result.
	generation uint64
}

// New creates a Cache with the given epoch length.
func New[V any](ttl time.Duration, opts ...Option[V]) (*Cache[V], error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	c := &Cache[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[Key]V),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// KeyFor returns the key a request for windowDays maps to right now.
func (c *Cache[V]) KeyFor(windowDays int) Key {
	return Key{WindowDays: windowDays, Epoch: c.now().UnixNano() / int64(c.ttl)}
}

// Get returns the memoized value for the current epoch, computing it on a
// miss. hit is true when no computation was started by this caller.
// Failed computations are not cached. compute runs without ctx's
// cancellation; a caller whose ctx ends stops waiting and gets ctx.Err().
func (c *Cache[V]) Get(ctx context.Context, windowDays int, compute func(ctx context.Context) (V, error)) (value V, hit bool, err error) {
	key := c.KeyFor(windowDays)

	c.mu.Lock()
	c.purgeLocked(key.Epoch)
	if v, ok := c.entries[key]; ok {
		c.mu.Unlock()
		metrics.RecordCacheRequest("hit")
		return v, true, nil
	}
	gen := c.generation
	c.mu.Unlock()

	flight := key.String() + "#" + strconv.FormatUint(gen, 10)
	// The computation outlives the caller that started it: its result is
	// shared with concurrent waiters and stored for the whole epoch.
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flight, func() (any, error) {
		v, err := compute(detached)
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		if c.generation == gen {
			c.entries[key] = v
			metrics.UpdateCacheEntries(len(c.entries))
		}
		c.mu.Unlock()
		return v, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		metrics.RecordCacheRequest("abandoned")
		var zero V
		return zero, false, ctx.Err()
	}
	if res.Shared {
		metrics.RecordCacheRequest("shared")
	} else {
		metrics.RecordCacheRequest("miss")
	}
	if res.Err != nil {
		var zero V
		return zero, false, res.Err
	}
	v, _ := res.Val.(V)
	return v, res.Shared, nil
}

// purgeLocked drops entries from epochs before current.
func (c *Cache[V]) purgeLocked(current int64) {
	for k := range c.entries {
		if k.Epoch < current {
			delete(c.entries, k)
		}
	}
	metrics.UpdateCacheEntries(len(c.entries))
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]V)
	c.generation++
	metrics.UpdateCacheEntries(0)
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the epoch length.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }
