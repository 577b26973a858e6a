// Package memstore is an in-process database.Store for local runs and tests.
// Records are guarded by per-key locks and every transaction stages its
// writes, applying them atomically on commit.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/staybook/settlement-backend/internal/database"
	"github.com/staybook/settlement-backend/internal/models"
)

// DefaultLockWait bounds how long a transaction waits for a held record
const DefaultLockWait = 200 * time.Millisecond

// Store implements database.Store in memory
type Store struct {
	mu         sync.RWMutex
	locks      *keyedLocks
	bookings   map[uuid.UUID]models.Booking
	inventory  map[models.InventoryKey]models.InventoryRecord
	wallets    map[uuid.UUID]models.Wallet // keyed by user id
	walletTxns map[uuid.UUID][]models.WalletTransaction
	promos     map[string]models.PromoCode // keyed by upper-cased code
	roomTypes  map[uuid.UUID]models.RoomType
	mealPlans  map[uuid.UUID]models.MealPlan
	users      map[uuid.UUID]models.User
	audits     []models.PaymentAudit
}

// New creates an empty store
func New() *Store {
	return NewWithLockWait(DefaultLockWait)
}

// NewWithLockWait creates an empty store with a custom lock wait
func NewWithLockWait(wait time.Duration) *Store {
	return &Store{
		locks:      newKeyedLocks(wait),
		bookings:   make(map[uuid.UUID]models.Booking),
		inventory:  make(map[models.InventoryKey]models.InventoryRecord),
		wallets:    make(map[uuid.UUID]models.Wallet),
		walletTxns: make(map[uuid.UUID][]models.WalletTransaction),
		promos:     make(map[string]models.PromoCode),
		roomTypes:  make(map[uuid.UUID]models.RoomType),
		mealPlans:  make(map[uuid.UUID]models.MealPlan),
		users:      make(map[uuid.UUID]models.User),
	}
}

var _ database.Store = (*Store)(nil)

// WithTx runs fn with a fresh transaction. Staged writes are applied only
// when fn returns nil. Locks are held until the transaction ends.
func (s *Store) WithTx(ctx context.Context, fn func(tx database.Tx) error) error {
	tx := newTx(s)
	defer tx.releaseLocks()

	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *Store) Bookings() database.BookingReader { return bookingReader{s} }
func (s *Store) Wallets() database.WalletReader { return walletReader{s} }
func (s *Store) Catalog() database.CatalogRepository { return catalogReader{s} }
func (s *Store) Users() database.UserRepository { return userReader{s} }

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error { return nil }

// ============================================================================
// SEEDING & INSPECTION
// ============================================================================

// AddRoomType registers a room type
func (s *Store) AddRoomType(rt models.RoomType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomTypes[rt.ID] = rt
}

// SetRoomPrice changes a room type's nightly price
func (s *Store) SetRoomPrice(id uuid.UUID, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.roomTypes[id]; ok {
		rt.Price = price
		s.roomTypes[id] = rt
	}
}

// AddMealPlan registers a meal plan
func (s *Store) AddMealPlan(mp models.MealPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mealPlans[mp.ID] = mp
}

// AddUser registers a user
func (s *Store) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// AddPromo registers a promo code
func (s *Store) AddPromo(p models.PromoCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promos[strings.ToUpper(p.Code)] = p
}

// Promo returns the committed state of a promo code
func (s *Store) Promo(code string) (models.PromoCode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.promos[strings.ToUpper(code)]
	return p, ok
}

// Inventory returns the committed record for a room type and date
func (s *Store) Inventory(roomTypeID uuid.UUID, date time.Time) (models.InventoryRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.inventory[models.InventoryKey{RoomTypeID: roomTypeID, Date: models.FormatDate(date)}]
	return rec, ok
}

// Transactions returns a wallet's full log, oldest first
func (s *Store) Transactions(walletID uuid.UUID) []models.WalletTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.WalletTransaction(nil), s.walletTxns[walletID]...)
}

// PaymentAudits returns every logged audit entry
func (s *Store) PaymentAudits() []models.PaymentAudit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.PaymentAudit(nil), s.audits...)
}

// ============================================================================
// LOCK-FREE READERS
// ============================================================================

type bookingReader struct{ s *Store }

func (r bookingReader) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, models.NotFoundError("booking")
	}
	return &b, nil
}

func (r bookingReader) ListExpiredHoldIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	var expired []models.Booking
	for _, b := range r.s.bookings {
		if (b.Status == models.BookingStatusReserved || b.Status == models.BookingStatusPendingPayment) &&
			b.InventoryState == models.InventoryHeld && b.IsExpired(now) {
			expired = append(expired, b)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(*expired[j].ExpiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	ids := make([]uuid.UUID, len(expired))
	for i, b := range expired {
		ids[i] = b.ID
	}
	return ids, nil
}

type walletReader struct{ s *Store }

func (r walletReader) GetWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.wallets[userID]
	if !ok {
		return nil, models.NotFoundError("wallet")
	}
	return &w, nil
}

func (r walletReader) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	log := r.s.walletTxns[walletID]
	out := make([]models.WalletTransaction, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		out = append(out, log[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type catalogReader struct{ s *Store }

func (r catalogReader) GetRoomType(ctx context.Context, id uuid.UUID) (*models.RoomType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rt, ok := r.s.roomTypes[id]
	if !ok || !rt.IsActive {
		return nil, models.NotFoundError("room type")
	}
	return &rt, nil
}

func (r catalogReader) GetMealPlan(ctx context.Context, id uuid.UUID) (*models.MealPlan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	mp, ok := r.s.mealPlans[id]
	if !ok {
		return nil, models.NotFoundError("meal plan")
	}
	return &mp, nil
}

type userReader struct{ s *Store }

func (r userReader) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, models.NotFoundError("user")
	}
	return &u, nil
}
