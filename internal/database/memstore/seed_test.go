package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDemo(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2030, 1, 10, 9, 0, 0, 0, time.UTC)
	store := New()

	_, err := store.Catalog().GetRoomType(ctx, DemoRoomTypeID)
	require.Error(t, err, "a new store starts empty")

	store.SeedDemo(now)

	rt, err := store.Catalog().GetRoomType(ctx, DemoRoomTypeID)
	require.NoError(t, err)
	assert.True(t, rt.IsActive)
	assert.Equal(t, 10, rt.TotalRooms)

	plan, err := store.Catalog().GetMealPlan(ctx, DemoMealPlanID)
	require.NoError(t, err)
	assert.Equal(t, DemoRoomTypeID, plan.RoomTypeID)

	user, err := store.Users().GetUser(ctx, DemoUserID)
	require.NoError(t, err)
	assert.True(t, user.IsActive())

	promo, ok := store.Promo(DemoPromoCode)
	require.True(t, ok)
	assert.True(t, promo.HasUsesLeft())
	assert.Equal(t, now.AddDate(0, 0, 30), promo.ValidUntil)
}
