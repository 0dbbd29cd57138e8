package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  3,
	}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	backoff := NewBackoff(fastConfig())

	calls := 0
	err := backoff.Retry(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	backoff := NewBackoff(fastConfig())

	calls := 0
	err := backoff.Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	backoff := NewBackoff(fastConfig())

	sentinel := errors.New("still broken")
	calls := 0
	err := backoff.Retry(context.Background(), func() error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestRetry_ContextCancellation(t *testing.T) {
	backoff := NewBackoff(BackoffConfig{
		InitialDelay: time.Hour,
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
		MaxAttempts:  5,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := backoff.Retry(ctx, func() error {
		return errors.New("forcing a long sleep")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetNextDelay_Exponential(t *testing.T) {
	backoff := NewBackoff(BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		MaxAttempts:  5,
	})

	assert.Equal(t, 100*time.Millisecond, backoff.GetNextDelay(1))
	assert.Equal(t, 200*time.Millisecond, backoff.GetNextDelay(2))
	assert.Equal(t, 400*time.Millisecond, backoff.GetNextDelay(3))
	// Capped at MaxDelay.
	assert.Equal(t, time.Second, backoff.GetNextDelay(10))
}

func TestGetNextDelay_JitterStaysBounded(t *testing.T) {
	backoff := NewBackoff(BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		MaxAttempts:  5,
		Jitter:       true,
	})

	for i := 0; i < 100; i++ {
		delay := backoff.GetNextDelay(2)
		assert.GreaterOrEqual(t, delay, 150*time.Millisecond)
		assert.LessOrEqual(t, delay, 250*time.Millisecond)
	}
}
