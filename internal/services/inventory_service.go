package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/database"
	"github.com/staybook/settlement-backend/internal/models"
)

// DefaultHoldDuration is how long reserved rooms stay held without payment
const DefaultHoldDuration = 10 * time.Minute

// InventoryService moves room counters for a booking's date range.
// All methods run inside the caller's transaction and only mutate the
// booking struct; persisting the booking is the caller's job.
type InventoryService struct {
	holdDuration time.Duration
	logger       *logrus.Logger
}

// NewInventoryService creates a new inventory reservation engine
func NewInventoryService(holdDuration time.Duration, logger *logrus.Logger) *InventoryService {
	if holdDuration <= 0 {
		holdDuration = DefaultHoldDuration
	}
	return &InventoryService{holdDuration: holdDuration, logger: logger}
}

// HoldDuration returns the reservation window
func (s *InventoryService) HoldDuration() time.Duration {
	return s.holdDuration
}

// Reserve holds booking.RoomCount rooms on every night of the stay, or none.
// On success the booking moves to RESERVED with an expiry of now + hold.
func (s *InventoryService) Reserve(ctx context.Context, tx database.Tx, booking *models.Booking, totalRooms int, now time.Time) error {
	if booking.Status != models.BookingStatusDraft {
		return models.NewSettlementError(models.KindInvalidTransition,
			fmt.Sprintf("cannot reserve a %s booking", booking.Status), nil)
	}

	dates := booking.StayRange().Dates()
	if len(dates) == 0 {
		return models.NewSettlementError(models.KindValidation, "booking has no nights", nil)
	}

	records, err := tx.Inventory().LockRange(ctx, booking.RoomTypeID, dates, totalRooms)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if !rec.CanHold(booking.RoomCount) {
			s.logger.WithFields(logrus.Fields{
				"booking_id":   booking.ID,
				"room_type_id": booking.RoomTypeID,
				"date":         models.FormatDate(rec.Date),
				"available":    rec.Available(),
				"requested":    booking.RoomCount,
			}).Info("Reservation rejected, no capacity")
			return models.NewSettlementError(models.KindInventoryUnavailable,
				"no rooms available on "+models.FormatDate(rec.Date), nil)
		}
	}

	for i := range records {
		records[i].RoomsHeld += booking.RoomCount
		records[i].UpdatedAt = now
	}
	if err := tx.Inventory().Save(ctx, records); err != nil {
		return err
	}

	if err := booking.Transition(models.BookingStatusReserved, now); err != nil {
		return err
	}
	expiresAt := now.Add(s.holdDuration)
	booking.ExpiresAt = &expiresAt
	booking.InventoryState = models.InventoryHeld
	return nil
}

// Confirm converts the booking's held rooms into confirmed rooms.
// The hold must still be live; a lapsed hold fails with ReservationExpired.
func (s *InventoryService) Confirm(ctx context.Context, tx database.Tx, booking *models.Booking, now time.Time) error {
	if booking.Status != models.BookingStatusReserved && booking.Status != models.BookingStatusPendingPayment {
		return models.NewSettlementError(models.KindInvalidTransition,
			fmt.Sprintf("cannot confirm rooms of a %s booking", booking.Status), nil)
	}
	if booking.InventoryState != models.InventoryHeld || booking.IsExpired(now) {
		return models.ErrReservationExpired
	}

	records, err := tx.Inventory().LockRange(ctx, booking.RoomTypeID, booking.StayRange().Dates(), 0)
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].RoomsHeld < booking.RoomCount {
			return fmt.Errorf("inventory %s on %s holds %d rooms, booking %s expects %d",
				booking.RoomTypeID, models.FormatDate(records[i].Date), records[i].RoomsHeld, booking.ID, booking.RoomCount)
		}
		records[i].RoomsHeld -= booking.RoomCount
		records[i].RoomsConfirmed += booking.RoomCount
		records[i].UpdatedAt = now
	}
	if err := tx.Inventory().Save(ctx, records); err != nil {
		return err
	}

	booking.InventoryState = models.InventoryConfirmed
	return nil
}

// Release returns the booking's rooms to the pool. Held rooms come off
// rooms_held, confirmed rooms (a cancelled confirmed booking) off
// rooms_confirmed. Releasing twice is a no-op and reports false.
func (s *InventoryService) Release(ctx context.Context, tx database.Tx, booking *models.Booking, now time.Time) (bool, error) {
	if booking.InventoryState != models.InventoryHeld && booking.InventoryState != models.InventoryConfirmed {
		return false, nil
	}

	records, err := tx.Inventory().LockRange(ctx, booking.RoomTypeID, booking.StayRange().Dates(), 0)
	if err != nil {
		return false, err
	}
	for i := range records {
		counter := &records[i].RoomsHeld
		if booking.InventoryState == models.InventoryConfirmed {
			counter = &records[i].RoomsConfirmed
		}
		if *counter < booking.RoomCount {
			return false, fmt.Errorf("inventory %s on %s cannot release %d rooms for booking %s",
				booking.RoomTypeID, models.FormatDate(records[i].Date), booking.RoomCount, booking.ID)
		}
		*counter -= booking.RoomCount
		records[i].UpdatedAt = now
	}
	if err := tx.Inventory().Save(ctx, records); err != nil {
		return false, err
	}

	booking.InventoryState = models.InventoryReleased
	return true, nil
}
