package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		RequestsPerMinute: 120,
		TokensPerMinute:   1200,
		MaxRetries:        3,
		BaseBackoff:       time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
	}
}

func TestAcquireWithinBudgetDoesNotBlock(t *testing.T) {
	l := New(testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Acquire(ctx, 10))
	}
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	l := New(Config{RequestsPerMinute: 1, TokensPerMinute: 1, MaxRetries: 1, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Acquire(ctx, 1))
	// Bucket now exhausted; a second acquire larger than refill in the
	// deadline window must time out via ctx, not hang forever.
	err := l.Acquire(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecuteWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	l := New(testConfig())
	attempts := 0
	isTransient := func(err error) bool { return true }

	result, err := ExecuteWithRetry(context.Background(), l, isTransient, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("rate_limit")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestExecuteWithRetryFailsImmediatelyOnNonTransient(t *testing.T) {
	l := New(testConfig())
	attempts := 0
	isTransient := func(err error) bool { return false }

	_, err := ExecuteWithRetry(context.Background(), l, isTransient, func(ctx context.Context) (string, error) {
		attempts++
		return "", errors.New("bad request")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestExecuteWithRetryExhaustsRetries(t *testing.T) {
	l := New(testConfig())
	isTransient := func(err error) bool { return true }

	_, err := ExecuteWithRetry(context.Background(), l, isTransient, func(ctx context.Context) (string, error) {
		return "", errors.New("rate_limit")
	})

	require.Error(t, err)
}
