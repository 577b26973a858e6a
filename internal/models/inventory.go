package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryRecord is the per (room type, calendar date) availability counter.
// Invariant: RoomsHeld + RoomsConfirmed <= TotalRooms.
type InventoryRecord struct {
	RoomTypeID     uuid.UUID `json:"room_type_id" db:"room_type_id"`
	Date           time.Time `json:"date" db:"stay_date"`
	TotalRooms     int       `json:"total_rooms" db:"total_rooms"`
	RoomsHeld      int       `json:"rooms_held" db:"rooms_held"`
	RoomsConfirmed int       `json:"rooms_confirmed" db:"rooms_confirmed"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Available returns the rooms that can still be held
func (r InventoryRecord) Available() int {
	return r.TotalRooms - r.RoomsHeld - r.RoomsConfirmed
}

// CanHold reports whether count more rooms fit without overselling
func (r InventoryRecord) CanHold(count int) bool {
	return count > 0 && r.Available() >= count
}

// InventoryKey identifies one inventory record
type InventoryKey struct {
	RoomTypeID uuid.UUID
	Date       string // YYYY-MM-DD
}

// Key returns the record's identity
func (r InventoryRecord) Key() InventoryKey {
	return InventoryKey{RoomTypeID: r.RoomTypeID, Date: r.Date.Format(dateLayout)}
}

// FormatDate renders a stay date in the storage layout
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
