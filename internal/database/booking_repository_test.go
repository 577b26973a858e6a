package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/staybook/settlement-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreezePricing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepo(db)
	ctx := context.Background()
	bookingID := uuid.New()
	snapshot := models.PricingSnapshot{
		BaseAmount:        decimal.NewFromInt(12000),
		TotalBeforeWallet: decimal.NewFromInt(14660),
		FrozenAt:          time.Date(2030, 1, 10, 9, 0, 0, 0, time.UTC),
	}

	t.Run("First freeze writes", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings\s+SET pricing_snapshot = \$2, updated_at = \$3\s+WHERE id = \$1 AND pricing_snapshot IS NULL`).
			WithArgs(bookingID, sqlmock.AnyArg(), snapshot.FrozenAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		wrote, err := repo.FreezePricing(ctx, bookingID, snapshot)
		require.NoError(t, err)
		assert.True(t, wrote)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already frozen", func(t *testing.T) {
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		wrote, err := repo.FreezePricing(ctx, bookingID, snapshot)
		require.NoError(t, err)
		assert.False(t, wrote)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingGetForUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepo(db)
	ctx := context.Background()

	t.Run("Lock not available", func(t *testing.T) {
		mock.ExpectQuery(`(?s)SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE NOWAIT`).
			WillReturnError(&pq.Error{Code: "55P03", Message: "could not obtain lock on row"})

		booking, err := repo.GetForUpdate(ctx, uuid.New())
		assert.Nil(t, booking)
		assert.ErrorIs(t, err, models.ErrLockContended)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`FOR UPDATE NOWAIT`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		booking, err := repo.GetForUpdate(ctx, uuid.New())
		assert.Nil(t, booking)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingUpdate_MissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepo(db)

	mock.ExpectExec(`UPDATE bookings SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Booking{ID: uuid.New(), Status: models.BookingStatusExpired})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListExpiredHoldIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepo(db)
	now := time.Now()
	first, second := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT id FROM bookings\s+WHERE status IN \('RESERVED', 'PENDING_PAYMENT'\)`).
		WithArgs(now, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(first.String()).AddRow(second.String()))

	ids, err := repo.ListExpiredHoldIDs(context.Background(), now, 50)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
