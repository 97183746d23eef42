package provider

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_Name(t *testing.T) {
	rl := NewRateLimiter("blockstream", 10)
	if rl.Name() != "blockstream" {
		t.Errorf("Name() = %q, want %q", rl.Name(), "blockstream")
	}
}

func TestRateLimiter_WaitAllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter("test-provider", 100) // high RPS so it doesn't block

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait() error on iteration %d: %v", i, err)
		}
	}
}

func TestRateLimiter_WaitCancelledContext(t *testing.T) {
	// 1 request per second — after the first request, the second must wait.
	rl := NewRateLimiter("slow-provider", 1)

	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() error: %v", err)
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rl.Wait(cancelCtx); err == nil {
		t.Fatal("Wait() with cancelled context should return error")
	}
}

func TestRateLimiter_ConcurrentWaiters(t *testing.T) {
	rl := NewRateLimiter("concurrent-provider", 100)

	const goroutines = 20
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rl.Wait(ctx); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Wait() error: %v", err)
	}
}
