package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/staybook/settlement-backend/internal/models"
)

// keyedLocks hands out one exclusive lock per record key.
// Acquire waits at most wait before reporting ErrLockContended, the way
// Postgres reports a lock_timeout.
type keyedLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

func newKeyedLocks(wait time.Duration) *keyedLocks {
	return &keyedLocks{slots: make(map[string]chan struct{}), wait: wait}
}

func (l *keyedLocks) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *keyedLocks) acquire(ctx context.Context, key string) error {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(l.wait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return models.NewSettlementError(models.KindLockContended, "lock wait exceeded for "+key, nil)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *keyedLocks) release(key string) {
	<-l.slot(key)
}
