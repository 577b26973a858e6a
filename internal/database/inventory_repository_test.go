package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/staybook/settlement-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var inventoryColumns = []string{
	"room_type_id", "stay_date", "total_rooms", "rooms_held", "rooms_confirmed", "updated_at",
}

func stayDates() []time.Time {
	return []time.Time{
		time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 2, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestLockRange(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInventoryRepo(db)
	ctx := context.Background()
	roomTypeID := uuid.New()
	dates := stayDates()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`(?s)INSERT INTO room_inventory (.+) ON CONFLICT \(room_type_id, stay_date\) DO NOTHING`).
			WithArgs(roomTypeID, pq.Array([]string{"2030-02-01", "2030-02-02"}), 5).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectQuery(`(?s)SELECT (.+) FROM room_inventory (.+) ORDER BY stay_date ASC\s+FOR UPDATE NOWAIT`).
			WithArgs(roomTypeID, pq.Array([]string{"2030-02-01", "2030-02-02"})).
			WillReturnRows(sqlmock.NewRows(inventoryColumns).
				AddRow(roomTypeID.String(), dates[0], 5, 1, 2, now).
				AddRow(roomTypeID.String(), dates[1], 5, 0, 4, now))

		records, err := repo.LockRange(ctx, roomTypeID, dates, 5)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, 2, records[0].Available())
		assert.Equal(t, 1, records[1].Available())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Contended", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO room_inventory`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FOR UPDATE NOWAIT`).
			WillReturnError(&pq.Error{Code: "55P03"})

		records, err := repo.LockRange(ctx, roomTypeID, dates, 5)
		assert.Nil(t, records)
		assert.ErrorIs(t, err, models.ErrLockContended)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty range", func(t *testing.T) {
		records, err := repo.LockRange(ctx, roomTypeID, nil, 5)
		assert.NoError(t, err)
		assert.Nil(t, records)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInventorySave_RejectsOversell(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInventoryRepo(db)

	err := repo.Save(context.Background(), []models.InventoryRecord{{
		RoomTypeID:     uuid.New(),
		Date:           stayDates()[0],
		TotalRooms:     2,
		RoomsHeld:      2,
		RoomsConfirmed: 1,
	}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "violates capacity")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateError(t *testing.T) {
	assert.Nil(t, translateError(nil, "op"))
	assert.ErrorIs(t, translateError(&pq.Error{Code: "55P03"}, "op"), models.ErrLockContended)
	assert.ErrorIs(t, translateError(&pq.Error{Code: "23505"}, "op"), models.ErrValidation)

	err := translateError(assert.AnError, "failed to load")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, models.ErrorKind(""), models.KindOf(err))
}

func TestPostgresStore_WithTx(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPostgresStore(db, nil)
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO payment_audits`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.WithTx(ctx, func(tx Tx) error {
			return tx.PaymentAudits().Log(ctx, models.NewPaymentAudit(models.PaymentEventChargeRequested, uuid.New(), "ref-1"))
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback on error", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.WithTx(ctx, func(tx Tx) error {
			return models.ErrInventoryUnavailable
		})
		assert.ErrorIs(t, err, models.ErrInventoryUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
