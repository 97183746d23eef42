package config

import (
	"errors"
	"time"
)

// Sentinel errors for internal use.
var (
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrInvalidAddress      = errors.New("invalid wallet address")
	ErrUnsupportedChain    = errors.New("unsupported chain")
	ErrProviderRateLimit   = errors.New("provider rate limit exceeded")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderTimeout     = errors.New("provider request timeout")
	ErrCircuitOpen         = errors.New("circuit breaker is open")
	ErrPriceFetchFailed    = errors.New("price fetch failed")
	ErrSnapshotNotFound    = errors.New("no snapshot found")
)

// TransientError wraps an error that should be retried.
type TransientError struct {
	Err        error
	RetryAfter time.Duration // 0 = use default backoff
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient (retriable).
func NewTransientError(err error) error {
	return &TransientError{Err: err}
}

// NewTransientErrorWithRetry wraps with explicit retry delay.
func NewTransientErrorWithRetry(err error, retryAfter time.Duration) error {
	return &TransientError{Err: err, RetryAfter: retryAfter}
}

// IsTransient returns true if the error is transient (retriable).
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// GetRetryAfter returns the retry delay if set, or 0.
func GetRetryAfter(err error) time.Duration {
	var te *TransientError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}

// Error codes — shared with clients via API responses.
const (
	ErrorInvalidChain        = "ERROR_INVALID_CHAIN"
	ErrorInvalidAddress      = "ERROR_INVALID_ADDRESS"
	ErrorAggregationFailed   = "ERROR_AGGREGATION_FAILED"
	ErrorProviderRateLimit   = "ERROR_PROVIDER_RATE_LIMIT"
	ErrorProviderUnavailable = "ERROR_PROVIDER_UNAVAILABLE"
	ErrorDatabase            = "ERROR_DATABASE"
	ErrorSnapshotNotFound    = "ERROR_SNAPSHOT_NOT_FOUND"
)
