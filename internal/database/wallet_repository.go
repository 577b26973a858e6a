package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/staybook/settlement-backend/internal/models"
)

const walletColumns = `id, user_id, balance, currency, created_at, updated_at`

// WalletRepo handles wallets and the wallet transaction log
type WalletRepo struct {
	db       sqlx.ExtContext
	currency string
}

// NewWalletRepo creates a new wallet repository
func NewWalletRepo(db sqlx.ExtContext) *WalletRepo {
	return &WalletRepo{db: db, currency: "INR"}
}

// GetWallet returns the user's wallet
func (r *WalletRepo) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	err := sqlx.GetContext(ctx, r.db, &w, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundError("wallet")
	}
	if err != nil {
		return nil, translateError(err, "failed to get wallet")
	}
	return &w, nil
}

// GetForUpdate locks the user's wallet row. With create set, a missing
// wallet is inserted with a zero balance first.
func (r *WalletRepo) GetForUpdate(ctx context.Context, userID uuid.UUID, create bool) (*models.Wallet, error) {
	if create {
		insert := `
			INSERT INTO wallets (id, user_id, balance, currency, created_at, updated_at)
			VALUES ($1, $2, 0, $3, NOW(), NOW())
			ON CONFLICT (user_id) DO NOTHING`
		if _, err := r.db.ExecContext(ctx, insert, uuid.New(), userID, r.currency); err != nil {
			return nil, translateError(err, "failed to create wallet")
		}
	}

	var w models.Wallet
	err := sqlx.GetContext(ctx, r.db, &w,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE NOWAIT`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundError("wallet")
	}
	if err != nil {
		return nil, translateError(err, "failed to lock wallet")
	}
	return &w, nil
}

// UpdateBalance writes the balance of a locked wallet
func (r *WalletRepo) UpdateBalance(ctx context.Context, w *models.Wallet) error {
	if w.Balance.LessThan(decimal.Zero) {
		return fmt.Errorf("wallet %s balance cannot be negative", w.ID)
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE wallets SET balance = $2, updated_at = $3 WHERE id = $1`,
		w.ID, w.Balance, w.UpdatedAt)
	return translateError(err, "failed to update wallet balance")
}

// AppendTransaction adds one entry to the append-only log
func (r *WalletRepo) AppendTransaction(ctx context.Context, t *models.WalletTransaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO wallet_transactions (
			id, wallet_id, type, amount, balance_after, description, booking_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.WalletID, t.Type, t.Amount, t.BalanceAfter, t.Description, t.BookingID, t.CreatedAt)
	return translateError(err, "failed to append wallet transaction")
}

// ListTransactions returns the newest entries first
func (r *WalletRepo) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	query := `
		SELECT id, wallet_id, type, amount, balance_after, description, booking_id, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	txns := []models.WalletTransaction{}
	if err := sqlx.SelectContext(ctx, r.db, &txns, query, walletID, limit); err != nil {
		return nil, translateError(err, "failed to list wallet transactions")
	}
	return txns, nil
}
