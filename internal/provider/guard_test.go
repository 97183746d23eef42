package provider

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ArtieFishal/lastwish/internal/config"
)

func TestGuard_SuccessPassesThrough(t *testing.T) {
	g := NewGuard("test", 100, time.Second)

	var calls int32
	err := g.Do(context.Background(), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestGuard_NonTransientErrorNotRetried(t *testing.T) {
	g := NewGuard("test", 100, time.Second)

	permanent := errors.New("bad request")
	var calls int32
	err := g.Do(context.Background(), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("Do() error = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1 (no retry for permanent errors)", calls)
	}
}

func TestGuard_TransientErrorRetriedOnce(t *testing.T) {
	g := NewGuard("test", 100, time.Second)

	var calls int32
	err := g.Do(context.Background(), func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return config.NewTransientError(config.ErrProviderUnavailable)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2 (one retry)", calls)
	}
}

func TestGuard_TransientErrorFailsAfterRetry(t *testing.T) {
	g := NewGuard("test", 100, time.Second)

	var calls int32
	err := g.Do(context.Background(), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return config.NewTransientError(config.ErrProviderRateLimit)
	})
	if !errors.Is(err, config.ErrProviderRateLimit) {
		t.Fatalf("Do() error = %v, want rate limit", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
}

func TestGuard_CircuitOpenBlocksCalls(t *testing.T) {
	g := NewGuard("test", 100, time.Second)

	// Trip the breaker with permanent failures.
	permanent := errors.New("boom")
	for i := 0; i < config.CircuitBreakerThreshold; i++ {
		g.Do(context.Background(), func(ctx context.Context) error {
			return permanent
		})
	}

	var calls int32
	err := g.Do(context.Background(), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	if !errors.Is(err, config.ErrCircuitOpen) {
		t.Fatalf("Do() error = %v, want ErrCircuitOpen", err)
	}
	if calls != 0 {
		t.Errorf("fn called %d times with open circuit, want 0", calls)
	}
}

func TestGuard_PerCallTimeoutBecomesTransient(t *testing.T) {
	g := NewGuard("test", 100, 20*time.Millisecond)

	var calls int32
	err := g.Do(context.Background(), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, config.ErrProviderTimeout) {
		t.Fatalf("Do() error = %v, want ErrProviderTimeout", err)
	}
	// A timeout is transient, so the guard tries twice.
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
}

func TestGuard_CallerCancellationNotRetried(t *testing.T) {
	g := NewGuard("test", 100, time.Second)

	ctx, cancel := context.WithCancel(context.Background())

	var calls int32
	err := g.Do(ctx, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		cancel()
		return ctx.Err()
	})
	if err == nil {
		t.Fatal("Do() expected error after caller cancellation")
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1 (no retry after caller cancel)", calls)
	}
}

func TestGuard_RetryAfterHonored(t *testing.T) {
	g := NewGuard("test", 100, time.Second)

	retryAfter := 100 * time.Millisecond
	start := time.Now()

	var calls int32
	err := g.Do(context.Background(), func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return config.NewTransientErrorWithRetry(config.ErrProviderRateLimit, retryAfter)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < retryAfter {
		t.Errorf("retry happened after %v, want at least %v", elapsed, retryAfter)
	}
}
