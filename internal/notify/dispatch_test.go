package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/staybook/settlement-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingNotifier struct {
	mu       sync.Mutex
	bookings []models.Booking
	events   []Event
	err      error
}

func (n *capturingNotifier) Notify(ctx context.Context, event Event, booking *models.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	n.bookings = append(n.bookings, *booking)
	return n.err
}

func (n *capturingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func TestDispatcher_DeliversCopy(t *testing.T) {
	logger, _ := test.NewNullLogger()
	notifier := &capturingNotifier{}
	dispatcher := NewDispatcher(notifier, logger)

	booking := &models.Booking{ID: uuid.New(), Status: models.BookingStatusConfirmed}
	dispatcher.Dispatch(EventBookingConfirmed, booking)
	booking.Status = models.BookingStatusCancelled

	assert.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 5*time.Millisecond)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, EventBookingConfirmed, notifier.events[0])
	assert.Equal(t, models.BookingStatusConfirmed, notifier.bookings[0].Status)
}

func TestDispatcher_LogsFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	notifier := &capturingNotifier{err: errors.New("broker unavailable")}
	dispatcher := NewDispatcher(notifier, logger)

	dispatcher.Dispatch(EventBookingExpired, &models.Booking{ID: uuid.New()})

	assert.Eventually(t, func() bool {
		entry := hook.LastEntry()
		return entry != nil && entry.Level == logrus.WarnLevel
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Failed to deliver booking event", hook.LastEntry().Message)
}

func TestDispatcher_NilSafe(t *testing.T) {
	var dispatcher *Dispatcher
	assert.NotPanics(t, func() { dispatcher.Dispatch(EventBookingReserved, &models.Booking{}) })

	logger, _ := test.NewNullLogger()
	notifier := &capturingNotifier{}
	NewDispatcher(notifier, logger).Dispatch(EventBookingReserved, nil)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, notifier.count())
}

func TestNewMessage(t *testing.T) {
	booking := &models.Booking{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Status:     models.BookingStatusConfirmed,
		AmountPaid: decimal.RequireFromString("12660.00"),
	}

	body, err := json.Marshal(NewMessage(EventBookingConfirmed, booking))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "booking.confirmed", decoded["event"])
	assert.Equal(t, booking.ID.String(), decoded["booking_id"])
	assert.Equal(t, "CONFIRMED", decoded["status"])
	assert.Equal(t, "12660", decoded["amount_paid"])
}

func TestLogNotifier(t *testing.T) {
	logger, hook := test.NewNullLogger()
	booking := &models.Booking{ID: uuid.New(), Status: models.BookingStatusExpired}

	require.NoError(t, NewLogNotifier(logger).Notify(context.Background(), EventBookingExpired, booking))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, EventBookingExpired, hook.LastEntry().Data["event"])
	assert.Equal(t, booking.ID, hook.LastEntry().Data["booking_id"])
}
