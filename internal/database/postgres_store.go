package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// PostgresStore implements Store on PostgreSQL row locks
type PostgresStore struct {
	db       *sqlx.DB
	logger   *logrus.Logger
	bookings *BookingRepo
	wallets  *WalletRepo
	catalog  *CatalogRepo
	users    *UserRepo
}

// NewPostgresStore creates a store on an open connection
func NewPostgresStore(db *sqlx.DB, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		db:       db,
		logger:   logger,
		bookings: NewBookingRepo(db),
		wallets:  NewWalletRepo(db),
		catalog:  NewCatalogRepo(db),
		users:    NewUserRepo(db),
	}
}

// WithTx runs fn in a read-committed transaction
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Bookings() BookingReader { return s.bookings }
func (s *PostgresStore) Wallets() WalletReader { return s.wallets }
func (s *PostgresStore) Catalog() CatalogRepository { return s.catalog }
func (s *PostgresStore) Users() UserRepository { return s.users }
func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) Bookings() BookingRepository { return NewBookingRepo(t.tx) }
func (t *pgTx) Inventory() InventoryRepository { return NewInventoryRepo(t.tx) }
func (t *pgTx) Wallets() WalletRepository { return NewWalletRepo(t.tx) }
func (t *pgTx) Promos() PromoRepository { return NewPromoRepo(t.tx) }
func (t *pgTx) PaymentAudits() PaymentAuditRepository { return NewPaymentAuditRepo(t.tx) }
