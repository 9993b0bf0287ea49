package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func retryOnlyConfig(attempts int) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}
}

func alwaysRetryable(error) ErrorClassification {
	return ErrorClassification{Retryable: true, RecordFailure: true}
}

func neverRetryable(error) ErrorClassification {
	return ErrorClassification{Retryable: false, RecordFailure: false}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	exec := NewExecutor(retryOnlyConfig(3))

	attempts := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("flaky")
		}
		return nil
	}, alwaysRetryable)
	if err != nil {
		t.Fatalf("Execute() error = %v, want success after retries", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestExecuteStopsOnNonRetryableError(t *testing.T) {
	exec := NewExecutor(retryOnlyConfig(3))

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, neverRetryable)
	if !errors.Is(err, errPermanent) {
		t.Fatalf("Execute() error = %v, want the permanent error", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestExecuteSingleAttemptNeverRetries(t *testing.T) {
	// The inference executor pins attempts to 1; even a retryable
	// failure must not trigger a second call.
	exec := NewExecutor(Config{RetryMaxAttempts: 1, BreakerEnabled: false})

	attempts := 0
	errTemp := errors.New("timeout")
	err := exec.Execute(context.Background(), "inference.generate", func(context.Context) error {
		attempts++
		return errTemp
	}, alwaysRetryable)
	if !errors.Is(err, errTemp) {
		t.Fatalf("Execute() error = %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errTemp := errors.New("unreachable")
	recordFailure := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errTemp
		}, recordFailure)
		if !errors.Is(err, errTemp) {
			t.Fatalf("iteration %d: error = %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatal("open circuit must not invoke the operation")
		return nil
	}, recordFailure)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("Execute() error = %v, want gobreaker.ErrOpenState", err)
	}
	if !IsCircuitOpen(err) {
		t.Fatalf("IsCircuitOpen(%v) = false", err)
	}
}

func TestExecuteCanceledContextStopsRetries(t *testing.T) {
	exec := NewExecutor(retryOnlyConfig(5))

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := exec.Execute(ctx, "op", func(context.Context) error {
		attempts++
		cancel()
		return errors.New("flaky")
	}, alwaysRetryable)
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (backoff must observe cancellation)", attempts)
	}
}
