// Package notify publishes booking lifecycle events. Delivery is best-effort:
// a failed publish is logged and never affects the booking.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/models"
)

// Event names a booking lifecycle event
type Event string

const (
	EventBookingReserved    Event = "booking.reserved"
	EventBookingConfirmed   Event = "booking.confirmed"
	EventBookingExpired     Event = "booking.expired"
	EventBookingCancelled   Event = "booking.cancelled"
	EventBookingNeedsReview Event = "booking.needs_review"
)

// Message is the JSON body published for an event
type Message struct {
	Event      Event                `json:"event"`
	BookingID  uuid.UUID            `json:"booking_id"`
	UserID     uuid.UUID            `json:"user_id"`
	Status     models.BookingStatus `json:"status"`
	AmountPaid decimal.Decimal      `json:"amount_paid"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// NewMessage builds the event body for a booking
func NewMessage(event Event, booking *models.Booking) Message {
	return Message{
		Event:      event,
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		Status:     booking.Status,
		AmountPaid: booking.AmountPaid,
		OccurredAt: time.Now().UTC(),
	}
}

// Notifier delivers booking events
type Notifier interface {
	Notify(ctx context.Context, event Event, booking *models.Booking) error
}

// LogNotifier writes events to the log. Used when no broker is configured.
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event
func (n *LogNotifier) Notify(ctx context.Context, event Event, booking *models.Booking) error {
	n.logger.WithFields(logrus.Fields{
		"event":      event,
		"booking_id": booking.ID,
		"user_id":    booking.UserID,
		"status":     booking.Status,
	}).Info("Booking event")
	return nil
}
