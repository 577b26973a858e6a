package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoomType is a bookable room category of a hotel
type RoomType struct {
	ID                 uuid.UUID          `json:"id" db:"id"`
	HotelID            uuid.UUID          `json:"hotel_id" db:"hotel_id"`
	Name               string             `json:"name" db:"name"`
	Price              decimal.Decimal    `json:"price" db:"price"`
	TotalRooms         int                `json:"total_rooms" db:"total_rooms"`
	CancellationPolicy CancellationPolicy `json:"cancellation_policy" db:"cancellation_policy"`
	IsActive           bool               `json:"is_active" db:"is_active"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// MealPlan is an optional per-night add-on for a room type
type MealPlan struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	RoomTypeID uuid.UUID       `json:"room_type_id" db:"room_type_id"`
	Name       string          `json:"name" db:"name"`
	PriceDelta decimal.Decimal `json:"price_delta" db:"price_delta"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// User is the identity record consumed from the user service
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Phone     string    `json:"phone" db:"phone"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Email     string    `json:"email" db:"email"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsActive reports whether the user may book
func (u *User) IsActive() bool {
	return u.Status == "active"
}
