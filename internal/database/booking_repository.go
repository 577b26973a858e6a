package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/staybook/settlement-backend/internal/models"
)

const bookingColumns = `
	id, user_id, status, room_type_id, meal_plan_id, room_count, nights,
	check_in, check_out, pricing_snapshot, inventory_state, expires_at,
	wallet_applied, promo_code, promo_discount, cancellation_policy,
	gateway_reference, amount_paid, needs_review,
	confirmed_at, expired_at, cancelled_at, created_at, updated_at`

// BookingRepo handles booking persistence. It runs on either the pool or a transaction.
type BookingRepo struct {
	db sqlx.ExtContext
}

// NewBookingRepo creates a new booking repository
func NewBookingRepo(db sqlx.ExtContext) *BookingRepo {
	return &BookingRepo{db: db}
}

// Insert creates a new booking row
func (r *BookingRepo) Insert(ctx context.Context, b *models.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, $19,
			$20, $21, $22, $23, $24
		)`

	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.UserID, b.Status, b.RoomTypeID, b.MealPlanID, b.RoomCount, b.Nights,
		b.CheckIn, b.CheckOut, b.Pricing, b.InventoryState, b.ExpiresAt,
		b.WalletApplied, b.PromoCode, b.PromoDiscount, b.CancellationPolicy,
		b.GatewayReference, b.AmountPaid, b.NeedsReview,
		b.ConfirmedAt, b.ExpiredAt, b.CancelledAt, b.CreatedAt, b.UpdatedAt,
	)
	return translateError(err, "failed to insert booking")
}

// GetBooking reads a booking without locking it
func (r *BookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// GetForUpdate locks the booking row, failing fast if another transaction holds it
func (r *BookingRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE NOWAIT`, id)
}

func (r *BookingRepo) get(ctx context.Context, query string, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := sqlx.GetContext(ctx, r.db, &b, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundError("booking")
	}
	if err != nil {
		return nil, translateError(err, "failed to get booking")
	}
	return &b, nil
}

// Update writes the booking's mutable columns
func (r *BookingRepo) Update(ctx context.Context, b *models.Booking) error {
	query := `
		UPDATE bookings SET
			status = $2,
			inventory_state = $3,
			expires_at = $4,
			wallet_applied = $5,
			promo_code = $6,
			promo_discount = $7,
			gateway_reference = $8,
			amount_paid = $9,
			needs_review = $10,
			confirmed_at = $11,
			expired_at = $12,
			cancelled_at = $13,
			updated_at = $14
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		b.ID, b.Status, b.InventoryState, b.ExpiresAt,
		b.WalletApplied, b.PromoCode, b.PromoDiscount,
		b.GatewayReference, b.AmountPaid, b.NeedsReview,
		b.ConfirmedAt, b.ExpiredAt, b.CancelledAt, b.UpdatedAt,
	)
	if err != nil {
		return translateError(err, "failed to update booking")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.NotFoundError("booking")
	}
	return nil
}

// FreezePricing stores the snapshot only while the column is still NULL
func (r *BookingRepo) FreezePricing(ctx context.Context, id uuid.UUID, snapshot models.PricingSnapshot) (bool, error) {
	query := `
		UPDATE bookings
		SET pricing_snapshot = $2, updated_at = $3
		WHERE id = $1 AND pricing_snapshot IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, models.FrozenPricing(snapshot), snapshot.FrozenAt)
	if err != nil {
		return false, translateError(err, "failed to freeze pricing")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// ListExpiredHoldIDs returns bookings whose hold lapsed before now, oldest first
func (r *BookingRepo) ListExpiredHoldIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM bookings
		WHERE status IN ('RESERVED', 'PENDING_PAYMENT')
		  AND inventory_state = 'HELD'
		  AND expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2`

	var ids []uuid.UUID
	if err := sqlx.SelectContext(ctx, r.db, &ids, query, now, limit); err != nil {
		return nil, translateError(err, "failed to list expired holds")
	}
	return ids, nil
}
