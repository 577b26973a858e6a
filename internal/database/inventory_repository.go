package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/staybook/settlement-backend/internal/models"
)

// InventoryRepo handles per-date room inventory counters
type InventoryRepo struct {
	db sqlx.ExtContext
}

// NewInventoryRepo creates a new inventory repository
func NewInventoryRepo(db sqlx.ExtContext) *InventoryRepo {
	return &InventoryRepo{db: db}
}

// LockRange creates missing records for the dates and locks all of them.
// Rows are locked in date order so concurrent ranges cannot deadlock.
func (r *InventoryRepo) LockRange(ctx context.Context, roomTypeID uuid.UUID, dates []time.Time, defaultTotal int) ([]models.InventoryRecord, error) {
	if len(dates) == 0 {
		return nil, nil
	}

	days := make([]string, len(dates))
	for i, d := range dates {
		days[i] = models.FormatDate(d)
	}

	insert := `
		INSERT INTO room_inventory (room_type_id, stay_date, total_rooms, rooms_held, rooms_confirmed, updated_at)
		SELECT $1, d::date, $3, 0, 0, NOW()
		FROM unnest($2::text[]) AS d
		ON CONFLICT (room_type_id, stay_date) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, insert, roomTypeID, pq.Array(days), defaultTotal); err != nil {
		return nil, translateError(err, "failed to create inventory records")
	}

	query := `
		SELECT room_type_id, stay_date, total_rooms, rooms_held, rooms_confirmed, updated_at
		FROM room_inventory
		WHERE room_type_id = $1 AND stay_date = ANY($2::date[])
		ORDER BY stay_date ASC
		FOR UPDATE NOWAIT`

	var records []models.InventoryRecord
	if err := sqlx.SelectContext(ctx, r.db, &records, query, roomTypeID, pq.Array(days)); err != nil {
		return nil, translateError(err, "failed to lock inventory")
	}
	if len(records) != len(dates) {
		return nil, fmt.Errorf("locked %d inventory records, expected %d", len(records), len(dates))
	}
	return records, nil
}

// Save writes back the held/confirmed counters of locked records
func (r *InventoryRepo) Save(ctx context.Context, records []models.InventoryRecord) error {
	query := `
		UPDATE room_inventory
		SET rooms_held = $3, rooms_confirmed = $4, updated_at = $5
		WHERE room_type_id = $1 AND stay_date = $2`

	for _, rec := range records {
		if rec.RoomsHeld < 0 || rec.RoomsConfirmed < 0 || rec.RoomsHeld+rec.RoomsConfirmed > rec.TotalRooms {
			return fmt.Errorf("inventory record %s %s violates capacity", rec.RoomTypeID, models.FormatDate(rec.Date))
		}
		if _, err := r.db.ExecContext(ctx, query,
			rec.RoomTypeID, models.FormatDate(rec.Date), rec.RoomsHeld, rec.RoomsConfirmed, rec.UpdatedAt,
		); err != nil {
			return translateError(err, "failed to save inventory")
		}
	}
	return nil
}
