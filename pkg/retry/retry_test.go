package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")
var errPermanent = errors.New("permanent")

func TestDo_SucceedsOnSecondAttempt(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), StageConfig(2, nil), func() error {
		calls++
		if calls == 1 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	cfg := StageConfig(2, func(err error) bool { return !errors.Is(err, errPermanent) })
	attempts, err := Do(context.Background(), cfg, func() error {
		calls++
		return errPermanent
	})

	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDo_SingleAttemptReturnsErrorUnwrapped(t *testing.T) {
	attempts, err := Do(context.Background(), StageConfig(1, nil), func() error { return errTransient })

	assert.Equal(t, errTransient, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	attempts, err := Do(context.Background(), StageConfig(2, nil), func() error { return errTransient })

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 2, attempts)
}

func TestDoWithLog_ReportsEachRetry(t *testing.T) {
	cfg := Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2}
	var logged []int
	_, err := DoWithLog(context.Background(), cfg, "postgres", func() error { return errTransient },
		func(attempt int, err error, nextDelay time.Duration) { logged = append(logged, attempt) })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: max retry attempts (3) exceeded")
	assert.Equal(t, []int{1, 2}, logged)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts, err := Do(ctx, DefaultConfig(), func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, attempts)
}
