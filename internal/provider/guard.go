package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ArtieFishal/lastwish/internal/config"
)

// Guard wraps every call to one external provider with the full resilience
// stack: token-bucket rate limiting, a circuit breaker, a per-call timeout,
// and a single retry with short backoff for transient failures. Rate-limited
// providers that send Retry-After get their requested delay (capped by the
// caller's context).
type Guard struct {
	name    string
	rl      *RateLimiter
	cb      *CircuitBreaker
	timeout time.Duration
}

// NewGuard creates a Guard for the named provider at rps requests per second.
func NewGuard(name string, rps int, timeout time.Duration) *Guard {
	return &Guard{
		name:    name,
		rl:      NewRateLimiter(name, rps),
		cb:      NewCircuitBreaker(name, config.CircuitBreakerThreshold, config.CircuitBreakerCooldown),
		timeout: timeout,
	}
}

// Name returns the provider name this guard protects.
func (g *Guard) Name() string { return g.name }

// Do executes fn under the guard. fn receives a context bounded by the
// per-call timeout. Transient errors (rate limit, unavailable, timeout) are
// retried exactly once after a short backoff; anything else, and a second
// failure, is returned to the caller.
func (g *Guard) Do(ctx context.Context, fn func(context.Context) error) error {
	if !g.cb.Allow() {
		return fmt.Errorf("%s: %w", g.name, config.ErrCircuitOpen)
	}

	err := g.attempt(ctx, fn)
	if err == nil {
		g.cb.RecordSuccess()
		return nil
	}

	if ctx.Err() != nil {
		// Caller abandoned the request; not a provider failure.
		return err
	}

	if !retriable(err) {
		g.cb.RecordFailure()
		return err
	}

	delay := config.RetryBackoff
	if ra := config.GetRetryAfter(err); ra > delay {
		delay = ra
	}

	slog.Warn("provider call failed, retrying once",
		"provider", g.name,
		"backoff", delay,
		"error", err,
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
	}

	if err = g.attempt(ctx, fn); err != nil {
		g.cb.RecordFailure()
		return err
	}

	g.cb.RecordSuccess()
	return nil
}

// attempt runs fn once under the rate limiter and per-call timeout.
func (g *Guard) attempt(ctx context.Context, fn func(context.Context) error) error {
	if err := g.rl.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return config.NewTransientError(
			fmt.Errorf("%w: %s did not respond within %s", config.ErrProviderTimeout, g.name, g.timeout))
	}
	return err
}

// retriable reports whether the error is worth one more attempt.
func retriable(err error) bool {
	return errors.Is(err, config.ErrProviderRateLimit) ||
		errors.Is(err, config.ErrProviderUnavailable) ||
		errors.Is(err, config.ErrProviderTimeout) ||
		config.IsTransient(err)
}

// NewHTTPClient creates a configured HTTP client for provider use.
// Timeout is left to the Guard's per-call context.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     config.HTTPMaxConnsPerHost,
			MaxIdleConnsPerHost: config.HTTPMaxIdleConnsPerHost,
			MaxIdleConns:        config.HTTPMaxIdleConns,
		},
	}
}
