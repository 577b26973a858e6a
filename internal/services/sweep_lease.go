package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SweepLease lets one instance at a time run a sweep tick.
// Sweep correctness never depends on it; it only avoids duplicate scans.
type SweepLease interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// releaseScript deletes the key only if this owner still holds it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisSweepLease is a SET NX PX lease on one key
type RedisSweepLease struct {
	client *redis.Client
	key    string
	owner  string
	ttl    time.Duration
}

// NewRedisSweepLease creates a lease owned by this process
func NewRedisSweepLease(client *redis.Client, key string, ttl time.Duration) *RedisSweepLease {
	return &RedisSweepLease{client: client, key: key, owner: uuid.NewString(), ttl: ttl}
}

// TryAcquire takes the lease if nobody holds it
func (l *RedisSweepLease) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sweep lease: %w", err)
	}
	return ok, nil
}

// Release gives the lease back if it is still ours
func (l *RedisSweepLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release sweep lease: %w", err)
	}
	return nil
}
