package provider

import (
	"testing"
	"time"

	"github.com/ArtieFishal/lastwish/internal/config"
)

func TestCircuitBreaker_ClosedAllowsRequests(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 100*time.Millisecond)

	for i := 0; i < 10; i++ {
		if !cb.Allow() {
			t.Fatalf("expected Allow() = true in closed state, iteration %d", i)
		}
	}

	if cb.State() != config.CircuitClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 100*time.Millisecond)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != config.CircuitClosed {
		t.Errorf("expected closed after 2 failures, got %s", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != config.CircuitOpen {
		t.Errorf("expected open after 3 failures, got %s", cb.State())
	}

	if cb.ConsecutiveFailures() != 3 {
		t.Errorf("expected 3 consecutive failures, got %d", cb.ConsecutiveFailures())
	}
}

func TestCircuitBreaker_OpenBlocksRequests(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, time.Hour)

	cb.RecordFailure()

	if cb.State() != config.CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}
	if cb.Allow() {
		t.Error("expected Allow() = false when circuit is open")
	}
}

func TestCircuitBreaker_HalfOpenAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 20*time.Millisecond)

	cb.RecordFailure()
	if cb.Allow() {
		t.Fatal("expected Allow() = false immediately after trip")
	}

	time.Sleep(30 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("expected Allow() = true after cooldown (half-open probe)")
	}
	if cb.State() != config.CircuitHalfOpen {
		t.Errorf("expected half-open, got %s", cb.State())
	}

	// Only one probe allowed while half-open.
	if cb.Allow() {
		t.Error("expected second half-open probe to be blocked")
	}
}

func TestCircuitBreaker_HalfOpenSuccessCloses(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 20*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(30 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("expected half-open probe to pass")
	}
	cb.RecordSuccess()

	if cb.State() != config.CircuitClosed {
		t.Errorf("expected closed after half-open success, got %s", cb.State())
	}
	if cb.ConsecutiveFailures() != 0 {
		t.Errorf("expected failure count reset, got %d", cb.ConsecutiveFailures())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 20*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(30 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("expected half-open probe to pass")
	}
	cb.RecordFailure()

	if cb.State() != config.CircuitOpen {
		t.Errorf("expected open after half-open failure, got %s", cb.State())
	}
	if cb.Allow() {
		t.Error("expected Allow() = false after reopening")
	}
}
