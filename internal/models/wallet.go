package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletTransactionType is the direction of a ledger entry
type WalletTransactionType string

const (
	WalletCredit WalletTransactionType = "CREDIT"
	WalletDebit  WalletTransactionType = "DEBIT"
)

// Wallet is the per-user stored balance. Balance is never negative.
type Wallet struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Currency  string          `json:"currency" db:"currency"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// WalletTransaction is an append-only ledger entry
type WalletTransaction struct {
	ID           uuid.UUID             `json:"id" db:"id"`
	WalletID     uuid.UUID             `json:"wallet_id" db:"wallet_id"`
	Type         WalletTransactionType `json:"type" db:"type"`
	Amount       decimal.Decimal       `json:"amount" db:"amount"`
	BalanceAfter decimal.Decimal       `json:"balance_after" db:"balance_after"`
	Description  string                `json:"description" db:"description"`
	BookingID    *uuid.UUID            `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt    time.Time             `json:"created_at" db:"created_at"`
}

// Signed returns the amount with the sign of its direction
func (t WalletTransaction) Signed() decimal.Decimal {
	if t.Type == WalletDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// ReplayBalance sums a transaction log from zero
func ReplayBalance(txns []WalletTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		total = total.Add(t.Signed())
	}
	return total
}

// WalletCreditRequest is the payload for a wallet top-up
type WalletCreditRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// WalletResponse is the wallet with its recent history
type WalletResponse struct {
	Wallet       *Wallet             `json:"wallet"`
	Transactions []WalletTransaction `json:"transactions"`
}
