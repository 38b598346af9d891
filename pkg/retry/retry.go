// Package retry runs an operation again with capped exponential backoff.
//
// Operations mark failures as Retryable or Permanent. By default only
// Retryable failures are tried again; WithRetryIf widens that.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

type markedError struct {
	err       error
	permanent bool
}

func (e *markedError) Error() string { return e.err.Error() }
func (e *markedError) Unwrap() error { return e.err }

// Retryable marks err as worth another attempt.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err}
}

// Permanent marks err as final even under a permissive RetryIf.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err, permanent: true}
}

func marked(err error) (*markedError, bool) {
	var m *markedError
	ok := errors.As(err, &m)
	return m, ok
}

func IsRetryable(err error) bool {
	m, ok := marked(err)
	return ok && !m.permanent
}

func IsPermanent(err error) bool {
	m, ok := marked(err)
	return ok && m.permanent
}

// unmark strips the outermost marker so callers see their own error.
func unmark(err error) error {
	if m, ok := err.(*markedError); ok {
		return m.err
	}
	return err
}

// Config is the backoff policy of a Retrier. MaxAttempts counts the first call.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// JitterFactor spreads each delay by up to ± that fraction.
	JitterFactor float64
	RetryIf      func(error) bool
	OnRetry      func(attempt int, err error, delay time.Duration)
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		JitterFactor: 0.1,
	}
}

type Option func(*Config)

func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.InitialDelay = d
		}
	}
}

func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.MaxDelay = d
		}
	}
}

func WithMultiplier(m float64) Option {
	return func(c *Config) {
		if m >= 1 {
			c.Multiplier = m
		}
	}
}

// WithJitter accepts factors in [0, 1].
func WithJitter(j float64) Option {
	return func(c *Config) {
		if j >= 0 && j <= 1 {
			c.JitterFactor = j
		}
	}
}

func WithRetryIf(fn func(error) bool) Option {
	return func(c *Config) { c.RetryIf = fn }
}

// WithOnRetry registers a hook called before each sleep.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *Config) { c.OnRetry = fn }
}

// Retrier applies one Config to any number of operations.
type Retrier struct {
	config Config
}

func New(opts ...Option) *Retrier {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Retrier{config: cfg}
}

func (r *Retrier) shouldRetry(err error) bool {
	if IsPermanent(err) {
		return false
	}
	if r.config.RetryIf != nil {
		return r.config.RetryIf(err)
	}
	return IsRetryable(err)
}

// Do calls op until it succeeds, fails without a retry mark, runs out of
// attempts or ctx ends. The returned error has its marker removed. When ctx
// ends between attempts the last operation error wins over ctx.Err().
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var last error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return unmark(last)
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		last = err

		if attempt >= r.config.MaxAttempts || !r.shouldRetry(err) {
			return unmark(err)
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return unmark(last)
		case <-t.C:
		}
	}
}

func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	d = math.Min(d, float64(r.config.MaxDelay))
	if j := r.config.JitterFactor; j > 0 {
		d += d * j * (rand.Float64()*2 - 1)
	}
	return time.Duration(math.Max(d, 0))
}

// Do runs op under a Retrier built from opts.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	return New(opts...).Do(ctx, op)
}

// DoWithData is Do for operations that produce a value.
func DoWithData[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var out T
	err := New(opts...).Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}

// InterpreterRetrier is the policy around language model calls. Only
// Retryable failures (rate limits, 5xx, transport) are repeated.
func InterpreterRetrier(maxAttempts int, onRetry func(attempt int, err error, delay time.Duration)) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return New(
		WithMaxAttempts(maxAttempts),
		WithInitialDelay(500*time.Millisecond),
		WithMaxDelay(8*time.Second),
		WithMultiplier(2),
		WithJitter(0.2),
		WithOnRetry(onRetry),
	)
}

// StartupPolicy is used while a store backend comes up. Every failure that
// is not Permanent is retried.
func StartupPolicy(onRetry func(attempt int, err error, delay time.Duration)) []Option {
	return []Option{
		WithMaxAttempts(5),
		WithInitialDelay(200 * time.Millisecond),
		WithMaxDelay(5 * time.Second),
		WithMultiplier(1.5),
		WithJitter(0.05),
		WithRetryIf(func(error) bool { return true }),
		WithOnRetry(onRetry),
	}
}
