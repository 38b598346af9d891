// Package circuitbreaker stops calling an upstream that keeps failing and
// lets a single probe through once a cool-down has passed.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State of a breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

var (
	// ErrCircuitOpen is returned without calling the upstream.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned while the half-open probes are in flight.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config of a breaker. FailureThreshold consecutive failures open it,
// SuccessThreshold consecutive half-open successes close it again.
type Config struct {
	Name                string
	FailureThreshold    int
	SuccessThreshold    int
	Timeout             time.Duration
	MaxHalfOpenRequests int
	// IsFailure filters errors; nil counts every error.
	IsFailure     func(error) bool
	OnStateChange func(name string, from, to State)
}

func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		MaxHalfOpenRequests: 1,
	}
}

type Option func(*Config)

func positive(n int, set func(int)) {
	if n > 0 {
		set(n)
	}
}

func WithFailureThreshold(n int) Option {
	return func(c *Config) { positive(n, func(v int) { c.FailureThreshold = v }) }
}

func WithSuccessThreshold(n int) Option {
	return func(c *Config) { positive(n, func(v int) { c.SuccessThreshold = v }) }
}

func WithMaxHalfOpenRequests(n int) Option {
	return func(c *Config) { positive(n, func(v int) { c.MaxHalfOpenRequests = v }) }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

func WithIsFailure(fn func(error) bool) Option {
	return func(c *Config) { c.IsFailure = fn }
}

func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(c *Config) { c.OnStateChange = fn }
}

// Counts are running totals since the breaker was built or Reset.
type Counts struct {
	Requests            int
	TotalFailures       int
	ConsecutiveFailures int
	ConsecutiveOK       int
}

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	config Config

	mu       sync.Mutex
	state    State
	counts   Counts
	openedAt time.Time
	probes   int
	now      func() time.Time
}

func New(name string, opts ...Option) *CircuitBreaker {
	cfg := DefaultConfig(name)
	for _, opt := range opts {
		opt(&cfg)
	}
	return &CircuitBreaker{config: cfg, now: time.Now}
}

// Execute calls fn when the breaker admits it and records the outcome.
// Rejected calls return ErrCircuitOpen or ErrTooManyRequests.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.config.Timeout {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.probes >= cb.config.MaxHalfOpenRequests {
			return ErrTooManyRequests
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.counts.Requests++
	failed := err != nil && (cb.config.IsFailure == nil || cb.config.IsFailure(err))

	if !failed {
		cb.counts.ConsecutiveFailures = 0
		cb.counts.ConsecutiveOK++
		if cb.state == StateHalfOpen {
			cb.probes--
			if cb.counts.ConsecutiveOK >= cb.config.SuccessThreshold {
				cb.transition(StateClosed)
			}
		}
		return
	}

	cb.counts.TotalFailures++
	cb.counts.ConsecutiveFailures++
	cb.counts.ConsecutiveOK = 0
	if cb.state == StateHalfOpen || cb.counts.ConsecutiveFailures >= cb.config.FailureThreshold {
		cb.openedAt = cb.now()
		cb.transition(StateOpen)
	}
}

// transition requires cb.mu.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.probes = 0
	cb.counts.ConsecutiveFailures = 0
	cb.counts.ConsecutiveOK = 0
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

// Reset closes the breaker and clears its counts without a state callback.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.counts = Counts{}
	cb.probes = 0
}

func (cb *CircuitBreaker) Name() string { return cb.config.Name }

func (cb *CircuitBreaker) IsOpen() bool   { return cb.State() == StateOpen }
func (cb *CircuitBreaker) IsClosed() bool { return cb.State() == StateClosed }

// InterpreterBreaker guards the language model API. Only errors accepted
// by isFailure count towards opening it; one success closes it again.
func InterpreterBreaker(threshold int, timeout time.Duration, isFailure func(error) bool, onStateChange func(name string, from, to State)) *CircuitBreaker {
	if threshold < 1 {
		threshold = 3
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return New("interpreter",
		WithFailureThreshold(threshold),
		WithSuccessThreshold(1),
		WithTimeout(timeout),
		WithMaxHalfOpenRequests(1),
		WithIsFailure(isFailure),
		WithOnStateChange(onStateChange),
	)
}
