package handlers

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECK INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// HealthChecker defines the interface for health checking.
type HealthChecker interface {
	// Check performs a health check and returns the status.
	Check(ctx context.Context) HealthStatus
}

// HealthCheckFunc is a function that performs a single health check.
// It returns an error if the check fails.
type HealthCheckFunc func(ctx context.Context) error

// HealthStatus represents the overall health status of the service.
type HealthStatus struct {
	// Healthy indicates if every critical check passed.
	Healthy bool `json:"healthy"`

	// Ready indicates if the service is ready to accept requests.
	Ready bool `json:"ready"`

	// Message provides additional context about the health status.
	Message string `json:"message,omitempty"`

	// Checks contains individual health check results.
	Checks map[string]CheckResult `json:"checks,omitempty"`

	// Uptime is how long the service has been running.
	Uptime string `json:"uptime,omitempty"`

	// Timestamp is when the check was performed.
	Timestamp time.Time `json:"timestamp"`

	// Version is the service version.
	Version string `json:"version,omitempty"`
}

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`

	// Critical checks make the service unhealthy when they fail. A failing
	// optional check is reported but only degrades the message.
	Critical bool `json:"critical"`

	Duration    string    `json:"duration,omitempty"`
	LastChecked time.Time `json:"last_checked,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPOSITE HEALTH CHECKER
// ══════════════════════════════════════════════════════════════════════════════

type namedCheck struct {
	name     string
	fn       HealthCheckFunc
	critical bool
}

// CompositeHealthChecker runs its registered checks concurrently, each
// under its own timeout.
type CompositeHealthChecker struct {
	mu        sync.RWMutex
	checks    []namedCheck
	startTime time.Time
	version   string
	timeout   time.Duration
}

func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		startTime: time.Now(),
		version:   version,
		timeout:   3 * time.Second,
	}
}

// SetTimeout bounds every individual check.
func (c *CompositeHealthChecker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// AddCheck registers a critical check. A failure makes the service unhealthy.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.add(namedCheck{name: name, fn: check, critical: true})
}

// AddOptionalCheck registers a check that only degrades the report, e.g.
// the interpreter or a cache.
func (c *CompositeHealthChecker) AddOptionalCheck(name string, check HealthCheckFunc) {
	c.add(namedCheck{name: name, fn: check})
}

// add replaces a check registered under the same name.
func (c *CompositeHealthChecker) add(check namedCheck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = slices.DeleteFunc(c.checks, func(n namedCheck) bool { return n.name == check.name })
	c.checks = append(c.checks, check)
	slices.SortFunc(c.checks, func(a, b namedCheck) int { return strings.Compare(a.name, b.name) })
}

func (c *CompositeHealthChecker) run(ctx context.Context, check namedCheck, timeout time.Duration) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := check.fn(ctx)
	result := CheckResult{
		Healthy:     err == nil,
		Message:     "OK",
		Critical:    check.critical,
		Duration:    time.Since(start).Round(time.Millisecond).String(),
		LastChecked: time.Now().UTC(),
	}
	if err != nil {
		result.Message = err.Error()
	}
	return result
}

// Check runs every check and aggregates the results. Failed and degraded
// names in Message are sorted.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := slices.Clone(c.checks)
	timeout := c.timeout
	c.mu.RUnlock()

	status := HealthStatus{
		Healthy:   true,
		Ready:     true,
		Checks:    make(map[string]CheckResult, len(checks)),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}
	if len(checks) == 0 {
		status.Message = "No health checks registered"
		return status
	}

	results := make([]CheckResult, len(checks))
	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			results[i] = c.run(ctx, check, timeout)
			return nil
		})
	}
	_ = g.Wait()

	var failed, degraded []string
	for i, check := range checks {
		r := results[i]
		status.Checks[check.name] = r
		switch {
		case r.Healthy:
		case r.Critical:
			failed = append(failed, check.name)
		default:
			degraded = append(degraded, check.name)
		}
	}

	switch {
	case len(failed) > 0:
		status.Healthy, status.Ready = false, false
		status.Message = "Some checks failed: " + strings.Join(failed, ", ")
	case len(degraded) > 0:
		status.Message = "Degraded: " + strings.Join(degraded, ", ")
	default:
		status.Message = "All checks passed"
	}
	return status
}

// ══════════════════════════════════════════════════════════════════════════════
// PREDEFINED HEALTH CHECKS
// ══════════════════════════════════════════════════════════════════════════════

// Pinger is implemented by the postgres connection and the redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPingCheck creates a health check that pings a backing service.
func NewPingCheck(p Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// BreakerState is implemented by clients guarded by a circuit breaker.
type BreakerState interface {
	Healthy() bool
}

// ErrCircuitOpen is reported when the interpreter's circuit is open.
var ErrCircuitOpen = errors.New("circuit open")

// NewBreakerCheck reports an open circuit as a failure.
func NewBreakerCheck(b BreakerState) HealthCheckFunc {
	return func(context.Context) error {
		if !b.Healthy() {
			return ErrCircuitOpen
		}
		return nil
	}
}
