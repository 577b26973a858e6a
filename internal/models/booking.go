package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// BOOKING STATUS & STATE MACHINE
// ============================================================================

// BookingStatus represents the status of a booking
// Matches PostgreSQL ENUM: booking_status
type BookingStatus string

const (
	BookingStatusDraft          BookingStatus = "DRAFT"           // Created, no inventory held
	BookingStatusReserved       BookingStatus = "RESERVED"        // Rooms held until expires_at
	BookingStatusPendingPayment BookingStatus = "PENDING_PAYMENT" // Price frozen, waiting for payment
	BookingStatusConfirmed      BookingStatus = "CONFIRMED"       // Paid, rooms confirmed
	BookingStatusExpired        BookingStatus = "EXPIRED"         // Hold lapsed, rooms released
	BookingStatusCancelled      BookingStatus = "CANCELLED"       // Cancelled by the guest
)

// bookingTransitions lists the legal successor states of each status
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusDraft:          {BookingStatusReserved, BookingStatusCancelled},
	BookingStatusReserved:       {BookingStatusPendingPayment, BookingStatusExpired, BookingStatusCancelled},
	BookingStatusPendingPayment: {BookingStatusConfirmed, BookingStatusExpired, BookingStatusCancelled},
	BookingStatusConfirmed:      {BookingStatusCancelled},
}

// CanTransitionTo reports whether moving from s to next is a legal transition
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
// CONFIRMED is terminal for the settlement flow; only a pre-checkin cancel leaves it.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusConfirmed || s == BookingStatusExpired || s == BookingStatusCancelled
}

// InventoryState tracks what the booking currently holds in room inventory
type InventoryState string

const (
	InventoryNone      InventoryState = "NONE"
	InventoryHeld      InventoryState = "HELD"
	InventoryConfirmed InventoryState = "CONFIRMED"
	InventoryReleased  InventoryState = "RELEASED"
)

// ============================================================================
// BOOKING
// ============================================================================

// Booking represents one guest's reservation attempt
type Booking struct {
	ID                 uuid.UUID          `json:"id" db:"id"`
	UserID             uuid.UUID          `json:"user_id" db:"user_id"`
	Status             BookingStatus      `json:"status" db:"status"`
	RoomTypeID         uuid.UUID          `json:"room_type_id" db:"room_type_id"`
	MealPlanID         *uuid.UUID         `json:"meal_plan_id,omitempty" db:"meal_plan_id"`
	RoomCount          int                `json:"room_count" db:"room_count"`
	Nights             int                `json:"nights" db:"nights"`
	CheckIn            time.Time          `json:"check_in" db:"check_in"`
	CheckOut           time.Time          `json:"check_out" db:"check_out"`
	Pricing            Pricing            `json:"pricing" db:"pricing_snapshot"`
	InventoryState     InventoryState     `json:"inventory_state" db:"inventory_state"`
	ExpiresAt          *time.Time         `json:"expires_at,omitempty" db:"expires_at"`
	WalletApplied      decimal.Decimal    `json:"wallet_applied" db:"wallet_applied"`
	PromoCode          *string            `json:"promo_code,omitempty" db:"promo_code"`
	PromoDiscount      decimal.Decimal    `json:"promo_discount" db:"promo_discount"`
	CancellationPolicy CancellationPolicy `json:"cancellation_policy" db:"cancellation_policy"`
	GatewayReference   *string            `json:"gateway_reference,omitempty" db:"gateway_reference"`
	AmountPaid         decimal.Decimal    `json:"amount_paid" db:"amount_paid"`
	NeedsReview        bool               `json:"needs_review" db:"needs_review"`
	ConfirmedAt        *time.Time         `json:"confirmed_at,omitempty" db:"confirmed_at"`
	ExpiredAt          *time.Time         `json:"expired_at,omitempty" db:"expired_at"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// StayRange returns the booking's check-in/check-out range
func (b *Booking) StayRange() DateRange {
	return DateRange{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

// IsExpired reports whether the hold has lapsed at now
func (b *Booking) IsExpired(now time.Time) bool {
	return b.ExpiresAt != nil && !now.Before(*b.ExpiresAt)
}

// Transition moves the booking to next, rejecting illegal transitions
func (b *Booking) Transition(next BookingStatus, now time.Time) error {
	if !b.Status.CanTransitionTo(next) {
		return NewSettlementError(KindInvalidTransition,
			fmt.Sprintf("cannot move booking from %s to %s", b.Status, next), nil)
	}
	b.Status = next
	b.UpdatedAt = now
	switch next {
	case BookingStatusConfirmed:
		b.ConfirmedAt = &now
	case BookingStatusExpired:
		b.ExpiredAt = &now
	case BookingStatusCancelled:
		b.CancelledAt = &now
	}
	return nil
}

// ============================================================================
// DATE RANGE
// ============================================================================

const dateLayout = "2006-01-02"

// DateRange is a half-open [CheckIn, CheckOut) range of calendar nights
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewDateRange parses YYYY-MM-DD dates into a range
func NewDateRange(checkIn, checkOut string) (DateRange, error) {
	in, err := time.Parse(dateLayout, checkIn)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid check_in date: %w", err)
	}
	out, err := time.Parse(dateLayout, checkOut)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid check_out date: %w", err)
	}
	r := DateRange{CheckIn: in, CheckOut: out}
	if r.Nights() < 1 {
		return DateRange{}, errors.New("check_out must be after check_in")
	}
	return r, nil
}

// Nights returns the number of nights in the range
func (r DateRange) Nights() int {
	in := truncateDay(r.CheckIn)
	out := truncateDay(r.CheckOut)
	if !out.After(in) {
		return 0
	}
	return int(out.Sub(in).Hours() / 24)
}

// Dates returns every night in the range, in ascending order
func (r DateRange) Dates() []time.Time {
	n := r.Nights()
	dates := make([]time.Time, 0, n)
	start := truncateDay(r.CheckIn)
	for i := 0; i < n; i++ {
		dates = append(dates, start.AddDate(0, 0, i))
	}
	return dates
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ============================================================================
// CANCELLATION POLICY SNAPSHOT
// ============================================================================

// CancellationPolicy is copied from the room type when the booking is created
// and never re-read from the hotel afterwards
type CancellationPolicy struct {
	FreeCancellationHours int             `json:"free_cancellation_hours"`
	RefundPercentage      decimal.Decimal `json:"refund_percentage"`
	LateRefundPercentage  decimal.Decimal `json:"late_refund_percentage"`
}

// RefundPercentageAt returns the refund percentage applicable when cancelling at now
func (p CancellationPolicy) RefundPercentageAt(checkIn, now time.Time) decimal.Decimal {
	cutoff := checkIn.Add(-time.Duration(p.FreeCancellationHours) * time.Hour)
	if now.Before(cutoff) {
		return p.RefundPercentage
	}
	return p.LateRefundPercentage
}

// Value implements driver.Valuer
func (p CancellationPolicy) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner
func (p *CancellationPolicy) Scan(value interface{}) error {
	if value == nil {
		*p = CancellationPolicy{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(raw, p)
}

// RefundQuote is the result of a cancellation
type RefundQuote struct {
	BookingID        uuid.UUID       `json:"booking_id"`
	PreviousStatus   BookingStatus   `json:"previous_status"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	RefundPercentage decimal.Decimal `json:"refund_percentage"`
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	InventoryFreed   bool            `json:"inventory_freed"`
}

// ============================================================================
// REQUEST/RESPONSE TYPES
// ============================================================================

// CreateBookingRequest is the payload for create_and_reserve
type CreateBookingRequest struct {
	RoomTypeID string  `json:"room_type_id" binding:"required"`
	MealPlanID *string `json:"meal_plan_id,omitempty"`
	CheckIn    string  `json:"check_in" binding:"required"`
	CheckOut   string  `json:"check_out" binding:"required"`
	RoomCount  int     `json:"room_count" binding:"required"`
}

// Validate checks the request and returns the parsed ids and range
func (r *CreateBookingRequest) Validate() (uuid.UUID, *uuid.UUID, DateRange, error) {
	roomTypeID, err := uuid.Parse(r.RoomTypeID)
	if err != nil {
		return uuid.Nil, nil, DateRange{}, NewSettlementError(KindValidation, "invalid room_type_id", err)
	}
	var mealPlanID *uuid.UUID
	if r.MealPlanID != nil && *r.MealPlanID != "" {
		id, err := uuid.Parse(*r.MealPlanID)
		if err != nil {
			return uuid.Nil, nil, DateRange{}, NewSettlementError(KindValidation, "invalid meal_plan_id", err)
		}
		mealPlanID = &id
	}
	if r.RoomCount < 1 {
		return uuid.Nil, nil, DateRange{}, NewSettlementError(KindValidation, "room_count must be at least 1", nil)
	}
	stay, err := NewDateRange(r.CheckIn, r.CheckOut)
	if err != nil {
		return uuid.Nil, nil, DateRange{}, NewSettlementError(KindValidation, err.Error(), nil)
	}
	return roomTypeID, mealPlanID, stay, nil
}

// ApplyPromoRequest is the payload for apply_promo
type ApplyPromoRequest struct {
	Code string `json:"code" binding:"required"`
}

// ApplyPromoResponse reports the discount that will be frozen with the price
type ApplyPromoResponse struct {
	BookingID uuid.UUID       `json:"booking_id"`
	Code      string          `json:"code"`
	Discount  decimal.Decimal `json:"discount"`
}

// ConfirmPaymentRequest is the payload for confirm_payment
type ConfirmPaymentRequest struct {
	WalletAmount     decimal.Decimal `json:"wallet_amount"`
	GatewayReference string          `json:"gateway_reference" binding:"required"`
}

// LockPriceResponse wraps the frozen snapshot with the payable amount
type LockPriceResponse struct {
	BookingID uuid.UUID       `json:"booking_id"`
	Status    BookingStatus   `json:"status"`
	Pricing   PricingSnapshot `json:"pricing"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}
