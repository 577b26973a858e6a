package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/staybook/settlement-backend/internal/database"
	"github.com/staybook/settlement-backend/internal/database/memstore"
	"github.com/staybook/settlement-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summer20() *models.PromoCode {
	return &models.PromoCode{
		Code:             "SUMMER20",
		DiscountType:     models.DiscountPercentage,
		DiscountValue:    decimal.NewFromInt(20),
		MaxDiscount:      decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		MinBookingAmount: decimal.NewFromInt(2000),
		ValidFrom:        testNow.Add(-time.Hour),
		ValidUntil:       testNow.Add(time.Hour),
		MaxUses:          100,
		IsActive:         true,
	}
}

func TestPromoService_ComputeDiscount(t *testing.T) {
	svc := NewPromoService(testLogger())

	tests := []struct {
		name  string
		promo func() *models.PromoCode
		base  string
		want  string
		at    time.Time
	}{
		{"percentage capped", summer20, "5000", "1000", testNow},
		{"percentage under cap", summer20, "3000", "600", testNow},
		{"below minimum", summer20, "1000", "0", testNow},
		{"at minimum", summer20, "2000", "400", testNow},
		{"not started", summer20, "5000", "0", testNow.Add(-2 * time.Hour)},
		{"ended", summer20, "5000", "0", testNow.Add(2 * time.Hour)},
		{"inactive", func() *models.PromoCode { p := summer20(); p.IsActive = false; return p }, "5000", "0", testNow},
		{"cap reached", func() *models.PromoCode { p := summer20(); p.UsageCount = p.MaxUses; return p }, "5000", "0", testNow},
		{"uncapped percentage", func() *models.PromoCode { p := summer20(); p.MaxDiscount = decimal.NullDecimal{}; return p }, "10000", "2000", testNow},
		{"flat", func() *models.PromoCode {
			p := summer20()
			p.DiscountType = models.DiscountFlat
			p.DiscountValue = decimal.NewFromInt(750)
			return p
		}, "5000", "750", testNow},
		{"flat never exceeds base", func() *models.PromoCode {
			p := summer20()
			p.DiscountType = models.DiscountFlat
			p.DiscountValue = decimal.NewFromInt(9000)
			return p
		}, "5000", "5000", testNow},
		{"nil promo", func() *models.PromoCode { return nil }, "5000", "0", testNow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.ComputeDiscount(tt.promo(), d(tt.base), tt.at)
			assertMoney(t, tt.want, got, "discount")
		})
	}
}

func TestPromoService_Validate(t *testing.T) {
	svc := NewPromoService(testLogger())

	discount, err := svc.Validate(summer20(), d("5000"), testNow)
	require.NoError(t, err)
	assertMoney(t, "1000", discount, "discount")

	_, err = svc.Validate(summer20(), d("1000"), testNow)
	assert.ErrorIs(t, err, models.ErrInvalidPromo)
	assert.Contains(t, err.Error(), "minimum")

	_, err = svc.Validate(nil, d("5000"), testNow)
	assert.ErrorIs(t, err, models.ErrInvalidPromo)

	_, err = svc.Validate(summer20(), d("5000"), testNow.Add(2*time.Hour))
	assert.ErrorIs(t, err, models.ErrInvalidPromo)
	assert.Contains(t, err.Error(), "expired")
}

func TestPromoService_RecordUsageNeverExceedsCap(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewPromoService(testLogger())

	promo := summer20()
	promo.MaxUses = 3
	store.AddPromo(*promo)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := withRetry(ctx, RetryPolicy{Attempts: 5, Backoff: time.Millisecond}, func() error {
				return store.WithTx(ctx, func(tx database.Tx) error {
					return svc.RecordUsage(ctx, tx, "summer20")
				})
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, models.ErrInvalidPromo)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, successes)
	stored, ok := store.Promo("SUMMER20")
	require.True(t, ok)
	assert.Equal(t, 3, stored.UsageCount)
}

func TestPromoService_RecordUsageIgnoresWindowAfterFreeze(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewPromoService(testLogger())

	promo := summer20()
	promo.ValidUntil = testNow.Add(-time.Minute)
	promo.IsActive = false
	store.AddPromo(*promo)

	err := store.WithTx(ctx, func(tx database.Tx) error {
		return svc.RecordUsage(ctx, tx, "SUMMER20")
	})
	require.NoError(t, err)

	stored, ok := store.Promo("SUMMER20")
	require.True(t, ok)
	assert.Equal(t, 1, stored.UsageCount)

	t.Run("cap still applies", func(t *testing.T) {
		promo.UsageCount = promo.MaxUses
		store.AddPromo(*promo)

		err := store.WithTx(ctx, func(tx database.Tx) error {
			return svc.RecordUsage(ctx, tx, "SUMMER20")
		})
		assert.ErrorIs(t, err, models.ErrInvalidPromo)
		assert.Contains(t, err.Error(), "usage limit")
	})
}
