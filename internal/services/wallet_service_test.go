package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/staybook/settlement-backend/internal/database"
	"github.com/staybook/settlement-backend/internal/database/memstore"
	"github.com/staybook/settlement-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWalletTest() (*WalletService, *memstore.Store) {
	store := memstore.New()
	clock := newFakeClock(testNow)
	return NewWalletService(store, RetryPolicy{Attempts: 5, Backoff: time.Millisecond}, clock.Now, testLogger()), store
}

func deduct(ctx context.Context, svc *WalletService, store *memstore.Store, userID uuid.UUID, amount string) error {
	return store.WithTx(ctx, func(tx database.Tx) error {
		_, err := svc.Deduct(ctx, tx, userID, d(amount), "Booking", nil)
		return err
	})
}

func TestWalletService_TopUpAndDeduct(t *testing.T) {
	ctx := context.Background()
	svc, store := setupWalletTest()
	userID := uuid.New()

	txn, err := svc.TopUp(ctx, userID, d("1500"), "")
	require.NoError(t, err)
	assert.Equal(t, models.WalletCredit, txn.Type)
	assert.Equal(t, "Wallet top-up", txn.Description)
	assertMoney(t, "1500", txn.BalanceAfter, "balance after top-up")

	require.NoError(t, deduct(ctx, svc, store, userID, "400.50"))

	balance, err := svc.Balance(ctx, userID)
	require.NoError(t, err)
	assertMoney(t, "1099.50", balance, "balance")

	resp, err := svc.GetWallet(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, resp.Transactions, 2)
	assert.Equal(t, models.WalletDebit, resp.Transactions[0].Type, "newest first")
	assert.True(t, resp.Wallet.Balance.Equal(models.ReplayBalance(store.Transactions(resp.Wallet.ID))))
}

func TestWalletService_FailedDeductLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	svc, store := setupWalletTest()
	userID := uuid.New()

	t.Run("no wallet", func(t *testing.T) {
		err := deduct(ctx, svc, store, userID, "10")
		assert.ErrorIs(t, err, models.ErrInsufficientBalance)
	})

	_, err := svc.TopUp(ctx, userID, d("100"), "")
	require.NoError(t, err)

	t.Run("short balance", func(t *testing.T) {
		err := deduct(ctx, svc, store, userID, "100.01")
		assert.ErrorIs(t, err, models.ErrInsufficientBalance)

		resp, err := svc.GetWallet(ctx, userID, 10)
		require.NoError(t, err)
		assertMoney(t, "100", resp.Wallet.Balance, "balance unchanged")
		assert.Len(t, resp.Transactions, 1)
	})

	t.Run("non-positive amounts", func(t *testing.T) {
		assert.ErrorIs(t, deduct(ctx, svc, store, userID, "0"), models.ErrValidation)
		_, err := svc.TopUp(ctx, userID, d("-5"), "")
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestWalletService_ConcurrentDeductsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	svc, store := setupWalletTest()
	userID := uuid.New()

	_, err := svc.TopUp(ctx, userID, d("500"), "")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := withRetry(ctx, svc.retry, func() error {
				return deduct(ctx, svc, store, userID, "100")
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, successes)
	resp, err := svc.GetWallet(ctx, userID, 100)
	require.NoError(t, err)
	assert.True(t, resp.Wallet.Balance.IsZero())
	assert.True(t, decimal.Zero.Equal(models.ReplayBalance(store.Transactions(resp.Wallet.ID))))
}

func TestWalletService_GetWalletWithoutWallet(t *testing.T) {
	svc, _ := setupWalletTest()
	userID := uuid.New()

	resp, err := svc.GetWallet(context.Background(), userID, 10)
	require.NoError(t, err)
	assert.Equal(t, userID, resp.Wallet.UserID)
	assert.True(t, resp.Wallet.Balance.IsZero())
	assert.Empty(t, resp.Transactions)
}
