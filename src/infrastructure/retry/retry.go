package retry

import (
	"context"
	"math/rand"
	"time"
)

// DefaultMaxAttempts bounds the total number of calls, not the retries.
const DefaultMaxAttempts = 5

type policy struct {
	maxAttempts int
	sleep       func(time.Duration)
	retryIf     func(error) bool
}

type Option func(*policy)

// WithMaxAttempts sets the total number of attempts before giving up.
func WithMaxAttempts(n int) Option {
	return func(p *policy) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithSleep replaces the wait function, mainly for tests.
func WithSleep(fn func(time.Duration)) Option {
	return func(p *policy) {
		p.sleep = fn
	}
}

// WithRetryIf limits retries to errors the predicate accepts.
func WithRetryIf(fn func(error) bool) Option {
	return func(p *policy) {
		p.retryIf = fn
	}
}

// Do runs fn until it succeeds or attempts are exhausted, waiting between
// attempts with exponential backoff and jitter. The error from the final
// attempt is returned as-is.
func Do(ctx context.Context, fn func() error, opts ...Option) error {
	p := policy{
		maxAttempts: DefaultMaxAttempts,
		sleep:       func(d time.Duration) { time.Sleep(d) },
		retryIf:     func(error) bool { return true },
	}
	for _, opt := range opts {
		opt(&p)
	}

	var err error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !p.retryIf(err) || attempt == p.maxAttempts-1 {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.sleep(Backoff(attempt))
	}
	return err
}

// Backoff returns the wait before the retry following the given zero-based
// attempt: 2^attempt seconds plus up to one second of jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	jitter := time.Duration(rand.Float64() * float64(time.Second))
	return base + jitter
}
