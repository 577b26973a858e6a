package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/staybook/settlement-backend/internal/database"
	"github.com/staybook/settlement-backend/internal/models"
)

// tx stages writes on copies of the locked records
type tx struct {
	s      *Store
	held   map[string]bool
	order  []string
	books  map[uuid.UUID]models.Booking
	inv    map[models.InventoryKey]models.InventoryRecord
	wallet map[uuid.UUID]models.Wallet
	txns   []models.WalletTransaction
	promos map[string]models.PromoCode
	audits []models.PaymentAudit
}

func newTx(s *Store) *tx {
	return &tx{
		s:      s,
		held:   make(map[string]bool),
		books:  make(map[uuid.UUID]models.Booking),
		inv:    make(map[models.InventoryKey]models.InventoryRecord),
		wallet: make(map[uuid.UUID]models.Wallet),
		promos: make(map[string]models.PromoCode),
	}
}

var _ database.Tx = (*tx)(nil)

func (t *tx) lock(ctx context.Context, key string) error {
	if t.held[key] {
		return nil
	}
	if err := t.s.locks.acquire(ctx, key); err != nil {
		return err
	}
	t.held[key] = true
	t.order = append(t.order, key)
	return nil
}

func (t *tx) releaseLocks() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.s.locks.release(t.order[i])
	}
	t.order = nil
	t.held = map[string]bool{}
}

func (t *tx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, b := range t.books {
		t.s.bookings[id] = b
	}
	for k, rec := range t.inv {
		t.s.inventory[k] = rec
	}
	for userID, w := range t.wallet {
		t.s.wallets[userID] = w
	}
	for _, txn := range t.txns {
		t.s.walletTxns[txn.WalletID] = append(t.s.walletTxns[txn.WalletID], txn)
	}
	for code, p := range t.promos {
		t.s.promos[code] = p
	}
	t.s.audits = append(t.s.audits, t.audits...)
}

func (t *tx) Bookings() database.BookingRepository { return txBookings{t} }
func (t *tx) Inventory() database.InventoryRepository { return txInventory{t} }
func (t *tx) Wallets() database.WalletRepository { return txWallets{t} }
func (t *tx) Promos() database.PromoRepository { return txPromos{t} }
func (t *tx) PaymentAudits() database.PaymentAuditRepository { return txAudits{t} }

// ============================================================================
// BOOKINGS
// ============================================================================

type txBookings struct{ t *tx }

func bookingKey(id uuid.UUID) string { return "booking:" + id.String() }

func (r txBookings) current(id uuid.UUID) (models.Booking, bool) {
	if b, ok := r.t.books[id]; ok {
		return b, true
	}
	r.t.s.mu.RLock()
	defer r.t.s.mu.RUnlock()
	b, ok := r.t.s.bookings[id]
	return b, ok
}

func (r txBookings) Insert(ctx context.Context, b *models.Booking) error {
	if err := r.t.lock(ctx, bookingKey(b.ID)); err != nil {
		return err
	}
	if _, exists := r.current(b.ID); exists {
		return models.NewSettlementError(models.KindValidation, "booking already exists", nil)
	}
	r.t.books[b.ID] = *b
	return nil
}

func (r txBookings) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	if err := r.t.lock(ctx, bookingKey(id)); err != nil {
		return nil, err
	}
	b, ok := r.current(id)
	if !ok {
		return nil, models.NotFoundError("booking")
	}
	return &b, nil
}

func (r txBookings) Update(ctx context.Context, b *models.Booking) error {
	if err := r.t.lock(ctx, bookingKey(b.ID)); err != nil {
		return err
	}
	cur, ok := r.current(b.ID)
	if !ok {
		return models.NotFoundError("booking")
	}
	next := *b
	next.Pricing = cur.Pricing
	r.t.books[b.ID] = next
	return nil
}

func (r txBookings) FreezePricing(ctx context.Context, id uuid.UUID, snapshot models.PricingSnapshot) (bool, error) {
	if err := r.t.lock(ctx, bookingKey(id)); err != nil {
		return false, err
	}
	cur, ok := r.current(id)
	if !ok {
		return false, models.NotFoundError("booking")
	}
	if cur.Pricing.IsFrozen() {
		return false, nil
	}
	cur.Pricing = models.FrozenPricing(snapshot)
	cur.UpdatedAt = snapshot.FrozenAt
	r.t.books[id] = cur
	return true, nil
}

// ============================================================================
// INVENTORY
// ============================================================================

type txInventory struct{ t *tx }

func (r txInventory) LockRange(ctx context.Context, roomTypeID uuid.UUID, dates []time.Time, defaultTotal int) ([]models.InventoryRecord, error) {
	keys := make([]models.InventoryKey, len(dates))
	for i, d := range dates {
		keys[i] = models.InventoryKey{RoomTypeID: roomTypeID, Date: models.FormatDate(d)}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Date < keys[j].Date })

	records := make([]models.InventoryRecord, 0, len(keys))
	for _, k := range keys {
		if err := r.t.lock(ctx, "inventory:"+k.RoomTypeID.String()+":"+k.Date); err != nil {
			return nil, err
		}
		rec, ok := r.t.inv[k]
		if !ok {
			r.t.s.mu.RLock()
			rec, ok = r.t.s.inventory[k]
			r.t.s.mu.RUnlock()
		}
		if !ok {
			day, err := time.Parse("2006-01-02", k.Date)
			if err != nil {
				return nil, fmt.Errorf("invalid inventory date %s: %w", k.Date, err)
			}
			rec = models.InventoryRecord{RoomTypeID: roomTypeID, Date: day, TotalRooms: defaultTotal, UpdatedAt: time.Now()}
			r.t.inv[k] = rec
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r txInventory) Save(ctx context.Context, records []models.InventoryRecord) error {
	for _, rec := range records {
		k := rec.Key()
		if !r.t.held["inventory:"+k.RoomTypeID.String()+":"+k.Date] {
			return fmt.Errorf("inventory record %s %s is not locked", k.RoomTypeID, k.Date)
		}
		if rec.RoomsHeld < 0 || rec.RoomsConfirmed < 0 || rec.RoomsHeld+rec.RoomsConfirmed > rec.TotalRooms {
			return fmt.Errorf("inventory record %s %s violates capacity", k.RoomTypeID, k.Date)
		}
		r.t.inv[k] = rec
	}
	return nil
}

// ============================================================================
// WALLETS
// ============================================================================

type txWallets struct{ t *tx }

func (r txWallets) GetForUpdate(ctx context.Context, userID uuid.UUID, create bool) (*models.Wallet, error) {
	if err := r.t.lock(ctx, "wallet:"+userID.String()); err != nil {
		return nil, err
	}
	w, ok := r.t.wallet[userID]
	if !ok {
		r.t.s.mu.RLock()
		w, ok = r.t.s.wallets[userID]
		r.t.s.mu.RUnlock()
	}
	if !ok {
		if !create {
			return nil, models.NotFoundError("wallet")
		}
		now := time.Now()
		w = models.Wallet{ID: uuid.New(), UserID: userID, Balance: decimal.Zero, Currency: "INR", CreatedAt: now, UpdatedAt: now}
		r.t.wallet[userID] = w
	}
	return &w, nil
}

func (r txWallets) UpdateBalance(ctx context.Context, w *models.Wallet) error {
	if !r.t.held["wallet:"+w.UserID.String()] {
		return fmt.Errorf("wallet %s is not locked", w.ID)
	}
	if w.Balance.IsNegative() {
		return fmt.Errorf("wallet %s balance cannot be negative", w.ID)
	}
	r.t.wallet[w.UserID] = *w
	return nil
}

func (r txWallets) AppendTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	r.t.txns = append(r.t.txns, *txn)
	return nil
}

// ============================================================================
// PROMOS & AUDITS
// ============================================================================

type txPromos struct{ t *tx }

func (r txPromos) lookup(code string) (models.PromoCode, bool) {
	key := strings.ToUpper(code)
	if p, ok := r.t.promos[key]; ok {
		return p, true
	}
	r.t.s.mu.RLock()
	defer r.t.s.mu.RUnlock()
	p, ok := r.t.s.promos[key]
	return p, ok
}

func (r txPromos) Get(ctx context.Context, code string) (*models.PromoCode, error) {
	p, ok := r.lookup(code)
	if !ok {
		return nil, models.NotFoundError("promo code")
	}
	return &p, nil
}

func (r txPromos) GetForUpdate(ctx context.Context, code string) (*models.PromoCode, error) {
	if err := r.t.lock(ctx, "promo:"+strings.ToUpper(code)); err != nil {
		return nil, err
	}
	return r.Get(ctx, code)
}

func (r txPromos) IncrementUsage(ctx context.Context, code string) error {
	if err := r.t.lock(ctx, "promo:"+strings.ToUpper(code)); err != nil {
		return err
	}
	p, ok := r.lookup(code)
	if !ok {
		return models.NotFoundError("promo code")
	}
	if p.UsageCount >= p.MaxUses {
		return models.NewSettlementError(models.KindInvalidPromo, "promo code usage limit reached", nil)
	}
	p.UsageCount++
	p.UpdatedAt = time.Now()
	r.t.promos[strings.ToUpper(code)] = p
	return nil
}

type txAudits struct{ t *tx }

func (r txAudits) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}
	r.t.audits = append(r.t.audits, *audit)
	return nil
}
