package services

import (
	"context"
	"testing"
	"time"

	"github.com/staybook/settlement-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestWithRetry(t *testing.T) {
	policy := RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

	t.Run("retries contention until success", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), policy, func() error {
			calls++
			if calls < 3 {
				return models.ErrLockContended
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), policy, func() error {
			calls++
			return models.ErrLockContended
		})
		assert.ErrorIs(t, err, models.ErrLockContended)
		assert.Equal(t, 3, calls)

		surfaced := surfaceContention(err, models.KindInventoryUnavailable, "rooms are busy")
		assert.ErrorIs(t, surfaced, models.ErrInventoryUnavailable)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), policy, func() error {
			calls++
			return models.ErrInsufficientBalance
		})
		assert.ErrorIs(t, err, models.ErrInsufficientBalance)
		assert.Equal(t, 1, calls)
		assert.Equal(t, err, surfaceContention(err, models.KindInventoryUnavailable, "unused"))
	})

	t.Run("context cancelled during backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := withRetry(ctx, RetryPolicy{Attempts: 3, Backoff: time.Second}, func() error {
			return models.ErrLockContended
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
