// Package fanout runs independent upstream calls concurrently on a fixed
// set of workers fed by a bounded queue. Every call has a deadline; a call
// that fails, panics, times out or cannot be queued yields its declared
// default so the caller always gets a complete, ordered result set.
package fanout

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/devpulse/pkg/logger"
	"github.com/okian/devpulse/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// Call is one named upstream fetch with the value to use when it fails.
type Call struct {
	Name    string
	Fetch   func(ctx context.Context) (any, error)
	Default any
}

// Result is the outcome of a Call. Value holds Default unless Outcome is ok.
type Result struct {
	Name     string        `json:"name"`
	Value    any           `json:"-"`
	Err      error         `json:"-"`
	Outcome  string        `json:"outcome"`
	Duration time.Duration `json:"duration"`
	Waited   time.Duration `json:"waited"`
}

// OK reports whether the call returned its own value.
func (r Result) OK() bool { return r.Outcome == metrics.OutcomeOK }

// Value extracts a typed value from r, returning the zero value when the
// stored value has another type.
func Value[T any](r Result) T {
	v, _ := r.Value.(T)
	return v
}

type indexed struct {
	index  int
	result Result
}

// Pool is a fixed-size worker pool over a bounded task queue.
type Pool struct {
	workerCount int
	queueSize   int
	logger      logger.Logger

	queue   *queue
	workers []*worker
	stop    chan struct{}
	busy    atomic.Int64

	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a Pool. Start must be called before Collect.
func New(opts ...Option) *Pool {
	p := &Pool{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   defaultQueueCapacity,
		logger:      logger.Get().Named("fanout"),
		stop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.queue = newQueue(p.queueSize)
	p.workers = make([]*worker, p.workerCount)
	for i := range p.workers {
		name := "worker-" + strconv.Itoa(i)
		p.workers[i] = &worker{
			name:   name,
			pool:   p,
			done:   make(chan struct{}),
			logger: p.logger.Named(name),
		}
	}
	metrics.UpdateWorkerCount(p.workerCount)
	metrics.UpdateWorkerBusy(0)
	return p
}

// Start launches the workers. Starting twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	for _, w := range p.workers {
		go w.run(ctx)
	}
	p.logger.Info(ctx, "fanout pool started",
		logger.Int("workers", p.workerCount),
		logger.Int("queue_size", p.queueSize),
	)
}

// Shutdown stops accepting calls and waits for the workers to exit.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	started := p.started
	p.mu.Unlock()

	p.queue.close()
	close(p.stop)
	if !started {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.String("worker", w.name))
			return fmt.Errorf("fanout shutdown: %w", shutdownCtx.Err())
		}
	}
	return nil
}

// Collect runs calls concurrently and returns their results in call order.
// Each call gets its own deadline of timeout (none when timeout <= 0),
// started when a worker picks it up, so time spent queued behind other calls
// does not count against it. Collect returns once every call has reported,
// ctx ends, the pool stops, or a bound of (n+1)*timeout for n queued calls
// passes; calls still outstanding then yield their defaults.
func (p *Pool) Collect(ctx context.Context, calls []Call, timeout time.Duration) []Result {
	results := make([]Result, len(calls))
	if len(calls) == 0 {
		return results
	}

	p.mu.Lock()
	ready := p.started && !p.stopped
	p.mu.Unlock()

	ch := make(chan indexed, len(calls))
	filled := make([]bool, len(calls))
	pending := 0

	for i, call := range calls {
		err := ErrNotStarted
		if ready {
			err = p.queue.enqueue(&task{
				ctx:      ctx,
				timeout:  timeout,
				index:    i,
				call:     call,
				enqueued: time.Now(),
				results:  ch,
			})
		}
		if err != nil {
			results[i] = Result{Name: call.Name, Value: call.Default, Err: err, Outcome: metrics.OutcomeRejected}
			filled[i] = true
			metrics.RecordUpstreamCall(call.Name, metrics.OutcomeRejected, 0)
			p.logger.Warn(ctx, "upstream call rejected",
				logger.String("upstream", call.Name), logger.Error(err))
			continue
		}
		pending++
	}

	var bound <-chan time.Time
	if timeout > 0 && pending > 0 {
		timer := time.NewTimer(time.Duration(pending+1) * timeout)
		defer timer.Stop()
		bound = timer.C
	}

	for pending > 0 {
		var abandon error
		select {
		case r := <-ch:
			if !filled[r.index] {
				results[r.index] = r.result
				filled[r.index] = true
				pending--
			}
			continue
		case <-ctx.Done():
			abandon = ctx.Err()
		case <-bound:
			abandon = context.DeadlineExceeded
		case <-p.stop:
			abandon = ErrQueueClosed
		}

		// Results that arrived alongside the abandon signal still count.
		for drained := false; !drained; {
			select {
			case r := <-ch:
				if !filled[r.index] {
					results[r.index] = r.result
					filled[r.index] = true
				}
			default:
				drained = true
			}
		}
		for i, call := range calls {
			if filled[i] {
				continue
			}
			results[i] = Result{Name: call.Name, Value: call.Default, Err: abandon, Outcome: outcomeFor(abandon)}
			filled[i] = true
			metrics.RecordUpstreamCall(call.Name, results[i].Outcome, 0)
		}
		pending = 0
	}
	return results
}

// Stats reports pool occupancy.
func (p *Pool) Stats() map[string]any {
	return map[string]any{
		"workers":        p.workerCount,
		"busy_workers":   p.busy.Load(),
		"queue_size":     p.queue.len(),
		"queue_capacity": p.queueSize,
	}
}
