// Package retry wraps fallible operations in a bounded, fixed-delay retry policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/okian/devpulse/pkg/logger"
)

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 5 * time.Second
)

// ErrNoAttempts is returned when a policy is configured with no attempts.
var ErrNoAttempts = errors.New("retry: max attempts must be positive")

// Policy retries an operation up to MaxAttempts times, waiting Delay between
// attempts. Each failed attempt is logged; the last error is returned after
// the final attempt.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration

	logger logger.Logger
	// onAttempt is called before every attempt with the 1-based attempt number.
	onAttempt func(attempt int)
}

// Option applies a configuration option to the Policy.
type Option func(*Policy)

// WithLogger sets the logger used for failed attempts.
func WithLogger(l logger.Logger) Option {
	return func(p *Policy) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithAttemptHook registers a callback invoked before each attempt.
func WithAttemptHook(fn func(attempt int)) Option {
	return func(p *Policy) {
		p.onAttempt = fn
	}
}

// New creates a Policy. Non-positive values fall back to the defaults.
func New(maxAttempts int, delay time.Duration, opts ...Option) *Policy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if delay < 0 {
		delay = DefaultDelay
	}
	p := &Policy{
		MaxAttempts: maxAttempts,
		Delay:       delay,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("retry")
	}
	return p
}

// Permanent marks err as non-retryable; Do returns it immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, the context is
// canceled, or MaxAttempts is reached.
func (p *Policy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		return ErrNoAttempts
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(p.Delay)
	b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	operation := func() error {
		attempt++
		if p.onAttempt != nil {
			p.onAttempt(attempt)
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			p.logger.Error(ctx, "operation failed permanently",
				logger.String("operation", name),
				logger.Int("attempt", attempt),
				logger.Error(perm.Err),
			)
			return err
		}
		p.logger.Error(ctx, "operation attempt failed",
			logger.String("operation", name),
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", p.MaxAttempts),
			logger.Error(err),
		)
		return err
	}

	if err := backoff.Retry(operation, b); err != nil {
		return fmt.Errorf("%s failed after %d attempt(s): %w", name, attempt, err)
	}
	return nil
}
