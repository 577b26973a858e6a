package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/database"
	"github.com/staybook/settlement-backend/internal/metrics"
)

// BookingExpirer expires one lapsed booking, reporting whether it changed
type BookingExpirer interface {
	ExpireBooking(ctx context.Context, bookingID uuid.UUID) (bool, error)
}

// ReservationSweepService expires reservations whose hold lapsed without payment
type ReservationSweepService struct {
	bookings  database.BookingReader
	expirer   BookingExpirer
	lease     SweepLease
	batchSize int
	clock     Clock
	logger    *logrus.Logger
}

// NewReservationSweepService creates a new sweep service. lease may be nil.
func NewReservationSweepService(
	bookings database.BookingReader,
	expirer BookingExpirer,
	lease SweepLease,
	batchSize int,
	clock Clock,
	logger *logrus.Logger,
) *ReservationSweepService {
	if batchSize <= 0 {
		batchSize = 100
	}
	if clock == nil {
		clock = SystemClock
	}
	return &ReservationSweepService{
		bookings:  bookings,
		expirer:   expirer,
		lease:     lease,
		batchSize: batchSize,
		clock:     clock,
		logger:    logger,
	}
}

// RunOnce runs a single sweep and returns how many bookings it expired.
// Each candidate is expired in its own transaction, so one failure does not
// stop the rest and a booking confirmed meanwhile is skipped.
func (s *ReservationSweepService) RunOnce(ctx context.Context) (int, error) {
	if s.lease != nil {
		acquired, err := s.lease.TryAcquire(ctx)
		if err != nil {
			// Correctness does not depend on the lease, sweep anyway
			s.logger.WithError(err).Warn("Sweep lease unavailable, sweeping without it")
		} else if !acquired {
			s.logger.Debug("Another instance holds the sweep lease")
			return 0, nil
		} else {
			defer func() {
				if err := s.lease.Release(context.Background()); err != nil {
					s.logger.WithError(err).Warn("Failed to release sweep lease")
				}
			}()
		}
	}

	start := time.Now()
	total := 0
	skip := make(map[uuid.UUID]bool)

	for {
		limit := s.batchSize + len(skip)
		ids, err := s.bookings.ListExpiredHoldIDs(ctx, s.clock(), limit)
		if err != nil {
			return total, err
		}

		// Every handled id either leaves the expired set or joins skip,
		// so the loop terminates
		handled := 0
		for _, id := range ids {
			if skip[id] {
				continue
			}
			handled++
			expired, err := s.expirer.ExpireBooking(ctx, id)
			if err != nil {
				s.logger.WithError(err).WithField("booking_id", id).Error("Failed to expire reservation")
				skip[id] = true
				continue
			}
			if expired {
				total++
			} else {
				skip[id] = true
			}
		}

		if handled == 0 || len(ids) < limit {
			break
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}

	if total > 0 {
		metrics.AddSweptReservations(total)
		s.logger.WithFields(logrus.Fields{
			"count":    total,
			"duration": time.Since(start).String(),
		}).Info("Expired reservations swept")
	}
	return total, nil
}
