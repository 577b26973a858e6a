package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/staybook/settlement-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_ExpiresEveryLapsedHoldAcrossBatches(t *testing.T) {
	ctx := context.Background()
	env := newSettlementEnv(t, 10, "3000")
	sweeper := NewReservationSweepService(env.store.Bookings(), env.orchestrator, nil, 2, env.clock.Now, testLogger())

	var held []uuid.UUID
	for i := 0; i < 5; i++ {
		held = append(held, env.reserve(t).ID)
	}
	paid := env.lock(t)
	_, err := env.orchestrator.ConfirmPayment(ctx, env.userID, paid.ID, decimal.Zero, "ref-paid")
	require.NoError(t, err)

	swept, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, swept, "nothing has lapsed yet")

	env.clock.Advance(DefaultHoldDuration + time.Second)

	swept, err = sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, swept)

	for _, id := range held {
		assert.Equal(t, models.BookingStatusExpired, env.booking(t, id).Status)
	}
	assert.Equal(t, models.BookingStatusConfirmed, env.booking(t, paid.ID).Status)

	rec := env.inventoryOn(t, "2030-02-01")
	assert.Equal(t, 0, rec.RoomsHeld)
	assert.Equal(t, 1, rec.RoomsConfirmed)

	swept, err = sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, swept, "a second sweep is a no-op")
}

// failingExpirer fails for one booking and delegates the rest
type failingExpirer struct {
	next   BookingExpirer
	failID uuid.UUID
}

func (f failingExpirer) ExpireBooking(ctx context.Context, id uuid.UUID) (bool, error) {
	if id == f.failID {
		return false, errors.New("boom")
	}
	return f.next.ExpireBooking(ctx, id)
}

func TestSweep_OneFailureDoesNotStopTheRest(t *testing.T) {
	ctx := context.Background()
	env := newSettlementEnv(t, 10, "3000")

	bad := env.reserve(t)
	good := env.reserve(t)
	env.clock.Advance(DefaultHoldDuration)

	sweeper := NewReservationSweepService(env.store.Bookings(), failingExpirer{next: env.orchestrator, failID: bad.ID}, nil, 1, env.clock.Now, testLogger())
	swept, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Equal(t, models.BookingStatusExpired, env.booking(t, good.ID).Status)
	assert.Equal(t, models.BookingStatusReserved, env.booking(t, bad.ID).Status)
}

func TestSweep_RespectsLeaseHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	env := newSettlementEnv(t, 10, "3000")
	booking := env.reserve(t)
	env.clock.Advance(DefaultHoldDuration)

	other := NewRedisSweepLease(client, "sweep:lease", time.Minute)
	acquired, err := other.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	lease := NewRedisSweepLease(client, "sweep:lease", time.Minute)
	sweeper := NewReservationSweepService(env.store.Bookings(), env.orchestrator, lease, 10, env.clock.Now, testLogger())

	swept, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
	assert.Equal(t, models.BookingStatusReserved, env.booking(t, booking.ID).Status)

	require.NoError(t, other.Release(ctx))

	swept, err = sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.False(t, mr.Exists("sweep:lease"), "lease is released after the sweep")
}

func TestSweep_SweepsWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	env := newSettlementEnv(t, 10, "3000")
	env.reserve(t)
	env.clock.Advance(DefaultHoldDuration)

	sweeper := NewReservationSweepService(env.store.Bookings(), env.orchestrator, NewRedisSweepLease(client, "sweep:lease", time.Minute), 10, env.clock.Now, testLogger())
	swept, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
}
