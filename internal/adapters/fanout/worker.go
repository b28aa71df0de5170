package fanout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/devpulse/pkg/logger"
	"github.com/okian/devpulse/pkg/metrics"
)

// worker drains the queue and runs one call at a time.
type worker struct {
	name   string
	pool   *Pool
	done   chan struct{}
	logger logger.Logger
}

func (w *worker) run(ctx context.Context) {
	defer close(w.done)
	tasks := w.pool.queue.dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.pool.stop:
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			w.pool.queue.observe()
			w.pool.busy.Add(1)
			metrics.UpdateWorkerBusy(int(w.pool.busy.Load()))
			w.execute(t)
			w.pool.busy.Add(-1)
			metrics.UpdateWorkerBusy(int(w.pool.busy.Load()))
		}
	}
}

type fetched struct {
	value any
	err   error
}

// execute runs the call under a deadline that starts now. A call that
// outlives its deadline is abandoned; its eventual result is dropped.
func (w *worker) execute(t *task) {
	start := time.Now()
	result := Result{Name: t.call.Name}

	finish := func(value any, err error, outcome string) {
		result.Duration = time.Since(start)
		result.Waited = start.Sub(t.enqueued)
		result.Outcome = outcome
		result.Err = err
		result.Value = value
		if outcome != metrics.OutcomeOK {
			result.Value = t.call.Default
			w.logger.Warn(t.ctx, "upstream call degraded",
				logger.String("upstream", t.call.Name),
				logger.String("outcome", outcome),
				logger.Error(err),
			)
		}
		metrics.RecordUpstreamCall(t.call.Name, outcome, float64(result.Duration.Milliseconds()))
		t.results <- indexed{index: t.index, result: result}
	}

	if err := t.ctx.Err(); err != nil {
		finish(nil, err, outcomeFor(err))
		return
	}

	callCtx, cancel := t.ctx, context.CancelFunc(func() {})
	if t.timeout > 0 {
		callCtx, cancel = context.WithTimeout(t.ctx, t.timeout)
	}
	defer cancel()

	out := make(chan fetched, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				out <- fetched{err: fmt.Errorf("%w: %s: %v", ErrPanic, t.call.Name, r)}
			}
		}()
		v, err := t.call.Fetch(callCtx)
		out <- fetched{value: v, err: err}
	}()

	select {
	case f := <-out:
		if f.err != nil {
			finish(nil, f.err, outcomeFor(f.err))
			return
		}
		finish(f.value, nil, metrics.OutcomeOK)
	case <-callCtx.Done():
		finish(nil, callCtx.Err(), outcomeFor(callCtx.Err()))
	}
}

func outcomeFor(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return metrics.OutcomeTimeout
	}
	return metrics.OutcomeError
}
