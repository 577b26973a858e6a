package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/database"
	"github.com/staybook/settlement-backend/internal/models"
)

// WalletService is the append-only wallet ledger.
// Every balance change writes exactly one transaction record in the same
// transaction, so replaying the log from zero gives the balance.
type WalletService struct {
	store  database.Store
	retry  RetryPolicy
	clock  Clock
	logger *logrus.Logger
}

// NewWalletService creates a new wallet ledger
func NewWalletService(store database.Store, retry RetryPolicy, clock Clock, logger *logrus.Logger) *WalletService {
	return &WalletService{store: store, retry: retry, clock: clock, logger: logger}
}

// Deduct debits amount from the user's wallet. A short balance fails with
// InsufficientBalance and leaves neither a balance change nor a log entry.
func (s *WalletService) Deduct(ctx context.Context, tx database.Tx, userID uuid.UUID, amount decimal.Decimal, description string, bookingID *uuid.UUID) (*models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, models.NewSettlementError(models.KindValidation, "deduct amount must be positive", nil)
	}

	wallet, err := tx.Wallets().GetForUpdate(ctx, userID, false)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInsufficientBalance
	}
	if err != nil {
		return nil, err
	}
	if wallet.Balance.LessThan(amount) {
		return nil, models.NewSettlementError(models.KindInsufficientBalance,
			"wallet balance "+wallet.Balance.StringFixed(moneyPlaces)+" is below "+amount.StringFixed(moneyPlaces), nil)
	}

	return s.apply(ctx, tx, wallet, models.WalletDebit, amount, description, bookingID)
}

// Credit adds amount to the user's wallet, creating the wallet if needed.
// A zero credit is a no-op and returns nil.
func (s *WalletService) Credit(ctx context.Context, tx database.Tx, userID uuid.UUID, amount decimal.Decimal, description string, bookingID *uuid.UUID) (*models.WalletTransaction, error) {
	if amount.IsNegative() {
		return nil, models.NewSettlementError(models.KindValidation, "credit amount cannot be negative", nil)
	}
	if amount.IsZero() {
		return nil, nil
	}

	wallet, err := tx.Wallets().GetForUpdate(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, tx, wallet, models.WalletCredit, amount, description, bookingID)
}

func (s *WalletService) apply(ctx context.Context, tx database.Tx, wallet *models.Wallet, kind models.WalletTransactionType, amount decimal.Decimal, description string, bookingID *uuid.UUID) (*models.WalletTransaction, error) {
	now := s.clock()
	if kind == models.WalletDebit {
		wallet.Balance = wallet.Balance.Sub(amount)
	} else {
		wallet.Balance = wallet.Balance.Add(amount)
	}
	wallet.UpdatedAt = now

	if err := tx.Wallets().UpdateBalance(ctx, wallet); err != nil {
		return nil, err
	}

	txn := &models.WalletTransaction{
		ID:           uuid.New(),
		WalletID:     wallet.ID,
		Type:         kind,
		Amount:       amount,
		BalanceAfter: wallet.Balance,
		Description:  description,
		BookingID:    bookingID,
		CreatedAt:    now,
	}
	if err := tx.Wallets().AppendTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// TopUp credits the wallet in its own transaction
func (s *WalletService) TopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (*models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, models.NewSettlementError(models.KindValidation, "top-up amount must be positive", nil)
	}
	if description == "" {
		description = "Wallet top-up"
	}

	var txn *models.WalletTransaction
	err := withRetry(ctx, s.retry, func() error {
		return s.store.WithTx(ctx, func(tx database.Tx) error {
			var err error
			txn, err = s.Credit(ctx, tx, userID, amount, description, nil)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"amount":  amount.StringFixed(moneyPlaces),
		"balance": txn.BalanceAfter.StringFixed(moneyPlaces),
	}).Info("Wallet topped up")
	return txn, nil
}

// Balance returns the committed balance, zero if the user has no wallet
func (s *WalletService) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	wallet, err := s.store.Wallets().GetWallet(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return wallet.Balance, nil
}

// GetWallet returns the wallet with its latest transactions
func (s *WalletService) GetWallet(ctx context.Context, userID uuid.UUID, limit int) (*models.WalletResponse, error) {
	wallet, err := s.store.Wallets().GetWallet(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return &models.WalletResponse{
			Wallet:       &models.Wallet{UserID: userID, Balance: decimal.Zero, Currency: "INR"},
			Transactions: []models.WalletTransaction{},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	txns, err := s.store.Wallets().ListTransactions(ctx, wallet.ID, limit)
	if err != nil {
		return nil, err
	}
	return &models.WalletResponse{Wallet: wallet, Transactions: txns}, nil
}
