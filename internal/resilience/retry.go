// Package resilience provides the retry policy for outbound service calls.
// The pipeline talks to slow, occasionally flaky HTTP services (model API,
// search, Wikipedia); each call gets a bounded timeout and a small fixed
// number of retries with linear backoff.
package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with linear backoff.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first try.
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// Backoff is the delay before retry n, multiplied by n (linear).
	// Default: 500ms.
	Backoff time.Duration

	// Timeout bounds each individual attempt. Zero means no per-attempt
	// timeout beyond the caller's context.
	Timeout time.Duration
}

// DefaultRetryConfig returns the retry policy used for API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Backoff:     500 * time.Millisecond,
		Timeout:     90 * time.Second,
	}
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	return cfg
}

// DoVal executes fn until it succeeds or attempts are exhausted. Context
// cancellation stops retries immediately and returns the last error.
func DoVal[T any](ctx context.Context, cfg RetryConfig, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if cfg.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		}

		val, err := fn(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == cfg.MaxAttempts {
			break
		}

		zap.L().Warn("resilience: retrying operation",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		delay := time.Duration(attempt) * cfg.Backoff
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}
