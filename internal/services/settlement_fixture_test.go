package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/database/memstore"
	"github.com/staybook/settlement-backend/internal/models"
	"github.com/staybook/settlement-backend/internal/notify"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2030, 1, 10, 9, 0, 0, 0, time.UTC)

const (
	testCheckIn  = "2030-02-01"
	testCheckOut = "2030-02-03"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeClock is a movable clock shared by every service in a test
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubGateway records charges and answers with a canned result
type stubGateway struct {
	mu       sync.Mutex
	calls    int
	amounts  []decimal.Decimal
	result   *ChargeResult
	err      error
	onCharge func()
}

func (g *stubGateway) Charge(ctx context.Context, amount decimal.Decimal, reference string) (*ChargeResult, error) {
	g.mu.Lock()
	g.calls++
	g.amounts = append(g.amounts, amount)
	hook := g.onCharge
	result, err := g.result, g.err
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &ChargeResult{Success: true, TransactionID: "txn-" + reference}, nil
	}
	return result, nil
}

func (g *stubGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// recordingNotifier collects dispatched events
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, event notify.Event, booking *models.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) Has(event notify.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

type settlementEnv struct {
	store        *memstore.Store
	clock        *fakeClock
	gateway      *stubGateway
	notifier     *recordingNotifier
	promos       *PromoService
	inventory    *InventoryService
	wallets      *WalletService
	orchestrator *BookingOrchestratorService
	sweeper      *ReservationSweepService
	roomType     models.RoomType
	userID       uuid.UUID
}

func newSettlementEnv(t *testing.T, totalRooms int, price string) *settlementEnv {
	t.Helper()
	logger := testLogger()

	store := memstore.New()
	clock := newFakeClock(testNow)
	gateway := &stubGateway{}
	notifier := &recordingNotifier{}
	retry := RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

	roomType := models.RoomType{
		ID:         uuid.New(),
		HotelID:    uuid.New(),
		Name:       "Deluxe King",
		Price:      decimal.RequireFromString(price),
		TotalRooms: totalRooms,
		CancellationPolicy: models.CancellationPolicy{
			FreeCancellationHours: 48,
			RefundPercentage:      decimal.NewFromInt(100),
			LateRefundPercentage:  decimal.NewFromInt(50),
		},
		IsActive: true,
	}
	store.AddRoomType(roomType)

	promos := NewPromoService(logger)
	inventory := NewInventoryService(DefaultHoldDuration, logger)
	wallets := NewWalletService(store, retry, clock.Now, logger)
	pricing := NewPricingFreezeService(store.Catalog(), promos, logger)
	orchestrator := NewBookingOrchestratorService(
		store, pricing, promos, inventory, wallets, gateway,
		notify.NewDispatcher(notifier, logger),
		clock.Now,
		BookingOrchestratorConfig{Retry: retry, Currency: "INR"},
		logger,
	)

	env := &settlementEnv{
		store:        store,
		clock:        clock,
		gateway:      gateway,
		notifier:     notifier,
		promos:       promos,
		inventory:    inventory,
		wallets:      wallets,
		orchestrator: orchestrator,
		sweeper:      NewReservationSweepService(store.Bookings(), orchestrator, nil, 10, clock.Now, logger),
		roomType:     roomType,
	}
	env.userID = env.addUser()
	return env
}

func (e *settlementEnv) addUser() uuid.UUID {
	id := uuid.New()
	e.store.AddUser(models.User{ID: id, Phone: "+919800000000", FirstName: "Asha", Status: "active", CreatedAt: testNow})
	return id
}

func (e *settlementEnv) request(rooms int) *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		RoomTypeID: e.roomType.ID.String(),
		CheckIn:    testCheckIn,
		CheckOut:   testCheckOut,
		RoomCount:  rooms,
	}
}

// reserve creates and reserves one room for the default user
func (e *settlementEnv) reserve(t *testing.T) *models.Booking {
	t.Helper()
	booking, err := e.orchestrator.CreateAndReserve(context.Background(), e.userID, e.request(1))
	require.NoError(t, err)
	return booking
}

// lock reserves one room and freezes its price
func (e *settlementEnv) lock(t *testing.T) *models.Booking {
	t.Helper()
	booking := e.reserve(t)
	_, err := e.orchestrator.LockPrice(context.Background(), e.userID, booking.ID)
	require.NoError(t, err)
	return e.booking(t, booking.ID)
}

func (e *settlementEnv) booking(t *testing.T, id uuid.UUID) *models.Booking {
	t.Helper()
	b, err := e.store.Bookings().GetBooking(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (e *settlementEnv) inventoryOn(t *testing.T, date string) models.InventoryRecord {
	t.Helper()
	day, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	rec, ok := e.store.Inventory(e.roomType.ID, day)
	require.True(t, ok, "no inventory record for %s", date)
	return rec
}

func (e *settlementEnv) topUp(t *testing.T, amount string) {
	t.Helper()
	_, err := e.wallets.TopUp(context.Background(), e.userID, decimal.RequireFromString(amount), "")
	require.NoError(t, err)
}

func (e *settlementEnv) addPromo(code string, maxUses int) models.PromoCode {
	p := models.PromoCode{
		Code:             code,
		DiscountType:     models.DiscountPercentage,
		DiscountValue:    decimal.NewFromInt(20),
		MaxDiscount:      decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		MinBookingAmount: decimal.NewFromInt(2000),
		ValidFrom:        testNow.Add(-24 * time.Hour),
		ValidUntil:       testNow.Add(30 * 24 * time.Hour),
		MaxUses:          maxUses,
		IsActive:         true,
	}
	e.store.AddPromo(p)
	return p
}
