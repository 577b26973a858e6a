package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronService(t *testing.T) {
	env := newSettlementEnv(t, 5, "3000")
	env.reserve(t)
	env.clock.Advance(DefaultHoldDuration)

	t.Run("invalid schedule", func(t *testing.T) {
		svc := NewCronService(env.sweeper, "not a schedule", testLogger())
		assert.Error(t, svc.Start())
	})

	t.Run("manual sweep", func(t *testing.T) {
		svc := NewCronService(env.sweeper, "0 * * * * *", testLogger())
		require.NoError(t, svc.Start())
		defer svc.Stop()

		count, err := svc.RunSweepNow(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
