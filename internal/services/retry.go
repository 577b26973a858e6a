package services

import (
	"context"
	"errors"
	"time"

	"github.com/staybook/settlement-backend/internal/metrics"
	"github.com/staybook/settlement-backend/internal/models"
)

// RetryPolicy bounds how often a contended transaction is re-run
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration // doubled after every failed attempt
}

// DefaultRetryPolicy is three attempts starting at 25ms
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: 25 * time.Millisecond}
}

// withRetry runs fn until it returns something other than ErrLockContended
// or the attempts are used up. The last error is returned unchanged.
func withRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := policy.Backoff

	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !errors.Is(err, models.ErrLockContended) {
			return err
		}
		if i == attempts-1 {
			break
		}
		metrics.IncLockRetry()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}

// surfaceContention turns an exhausted lock retry into the user-facing kind
func surfaceContention(err error, kind models.ErrorKind, message string) error {
	if errors.Is(err, models.ErrLockContended) {
		return models.NewSettlementError(kind, message, err)
	}
	return err
}
