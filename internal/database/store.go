package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/staybook/settlement-backend/internal/models"
)

// Store is the settlement engine's persistence boundary.
// Every mutation of bookings, inventory, wallets and promos goes through
// WithTx so a booking status change commits or rolls back together with the
// inventory/wallet change that caused it.
type Store interface {
	// WithTx runs fn inside one transaction. fn's error rolls everything back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Bookings() BookingReader
	Wallets() WalletReader
	Catalog() CatalogRepository
	Users() UserRepository
	Ping(ctx context.Context) error
}

// Tx exposes the repositories bound to one transaction.
// Lock order inside a transaction is booking -> inventory -> wallet -> promo.
type Tx interface {
	Bookings() BookingRepository
	Inventory() InventoryRepository
	Wallets() WalletRepository
	Promos() PromoRepository
	PaymentAudits() PaymentAuditRepository
}

// BookingReader reads bookings without taking locks
type BookingReader interface {
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListExpiredHoldIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// BookingRepository mutates bookings inside a transaction
type BookingRepository interface {
	Insert(ctx context.Context, booking *models.Booking) error
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	// Update persists every mutable column. The pricing snapshot is not one of them.
	Update(ctx context.Context, booking *models.Booking) error
	// FreezePricing writes the snapshot only if none is stored yet and reports
	// whether this call performed the write.
	FreezePricing(ctx context.Context, id uuid.UUID, snapshot models.PricingSnapshot) (bool, error)
}

// InventoryRepository locks and saves per-date inventory counters
type InventoryRepository interface {
	// LockRange locks the records of every date, creating missing ones with
	// defaultTotal rooms. Records are returned in ascending date order.
	LockRange(ctx context.Context, roomTypeID uuid.UUID, dates []time.Time, defaultTotal int) ([]models.InventoryRecord, error)
	Save(ctx context.Context, records []models.InventoryRecord) error
}

// WalletReader reads wallets without taking locks
type WalletReader interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletTransaction, error)
}

// WalletRepository mutates wallets inside a transaction
type WalletRepository interface {
	// GetForUpdate locks the user's wallet, optionally creating an empty one
	GetForUpdate(ctx context.Context, userID uuid.UUID, create bool) (*models.Wallet, error)
	UpdateBalance(ctx context.Context, wallet *models.Wallet) error
	AppendTransaction(ctx context.Context, txn *models.WalletTransaction) error
}

// PromoRepository reads and counts promo code usage
type PromoRepository interface {
	Get(ctx context.Context, code string) (*models.PromoCode, error)
	GetForUpdate(ctx context.Context, code string) (*models.PromoCode, error)
	IncrementUsage(ctx context.Context, code string) error
}

// PaymentAuditRepository appends payment audit entries
type PaymentAuditRepository interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
}

// CatalogRepository resolves room types and meal plans
type CatalogRepository interface {
	GetRoomType(ctx context.Context, id uuid.UUID) (*models.RoomType, error)
	GetMealPlan(ctx context.Context, id uuid.UUID) (*models.MealPlan, error)
}

// UserRepository is the identity lookup
type UserRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}
