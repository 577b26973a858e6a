package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/models"
)

// DispatchTimeout bounds one background delivery
const DispatchTimeout = 5 * time.Second

// Dispatcher sends events in the background so callers never wait on delivery
type Dispatcher struct {
	notifier Notifier
	logger   *logrus.Logger
}

// NewDispatcher wraps a notifier
func NewDispatcher(notifier Notifier, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, logger: logger}
}

// Dispatch fires the event and returns immediately. The booking is copied
// so later mutations by the caller are not observed.
func (d *Dispatcher) Dispatch(event Event, booking *models.Booking) {
	if d == nil || d.notifier == nil || booking == nil {
		return
	}
	snapshot := *booking

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), DispatchTimeout)
		defer cancel()

		if err := d.notifier.Notify(ctx, event, &snapshot); err != nil {
			d.logger.WithError(err).WithFields(logrus.Fields{
				"event":      event,
				"booking_id": snapshot.ID,
			}).Warn("Failed to deliver booking event")
		}
	}()
}
