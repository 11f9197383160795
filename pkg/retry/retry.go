package retry

import (
	"context"
	"fmt"
	"time"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	MaxTotalTimeout time.Duration
	// Retryable decides whether a failed attempt may be repeated. Nil retries every error.
	Retryable func(error) bool
}

// DefaultConfig returns a default retry configuration with 1 minute max timeout
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     10,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 60 * time.Second,
	}
}

// StageConfig returns the policy used by pipeline stages: a short fixed pause and
// no overall deadline, since every attempt is already bounded by the call timeout.
func StageConfig(maxAttempts int, retryable func(error) bool) Config {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return Config{
		MaxAttempts:   maxAttempts,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      50 * time.Millisecond,
		BackoffFactor: 1.0,
		Retryable:     retryable,
	}
}

// Do executes the given function with exponential backoff retry logic.
// It returns the number of attempts made alongside the final error.
func Do(ctx context.Context, cfg Config, fn func() error) (int, error) {
	return DoWithLog(ctx, cfg, "", fn, nil)
}

// DoWithLog executes the function with retry and logs each attempt
func DoWithLog(ctx context.Context, cfg Config, serviceName string, fn func() error, logFn func(attempt int, err error, nextDelay time.Duration)) (int, error) {
	if cfg.MaxTotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxTotalTimeout)
		defer cancel()
	}
	prefix := ""
	if serviceName != "" {
		prefix = serviceName + ": "
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return attempt - 1, fmt.Errorf("%sretry aborted after %d attempts: %w (last error: %v)", prefix, attempt-1, ctx.Err(), lastErr)
			}
			return attempt - 1, fmt.Errorf("%sretry aborted: %w", prefix, ctx.Err())
		default:
		}

		err := fn()
		if err == nil {
			return attempt, nil
		}

		lastErr = err

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return attempt, err
		}

		if attempt == cfg.MaxAttempts {
			if cfg.MaxAttempts == 1 {
				return attempt, err
			}
			return attempt, fmt.Errorf("%smax retry attempts (%d) exceeded: %w", prefix, cfg.MaxAttempts, lastErr)
		}

		if logFn != nil {
			logFn(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return attempt, fmt.Errorf("%sretry aborted after %d attempts: %w (last error: %v)", prefix, attempt, ctx.Err(), lastErr)
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return cfg.MaxAttempts, fmt.Errorf("%smax retry attempts exceeded: %w", prefix, lastErr)
}
