package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/staybook/settlement-backend/internal/models"
)

const promoColumns = `
	code, discount_type, discount_value, max_discount, min_booking_amount,
	valid_from, valid_until, max_uses, usage_count, is_active, created_at, updated_at`

// PromoRepo handles promo codes and their usage counters
type PromoRepo struct {
	db sqlx.ExtContext
}

// NewPromoRepo creates a new promo repository
func NewPromoRepo(db sqlx.ExtContext) *PromoRepo {
	return &PromoRepo{db: db}
}

// Get reads a promo code. Codes are matched case-insensitively.
func (r *PromoRepo) Get(ctx context.Context, code string) (*models.PromoCode, error) {
	return r.get(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE UPPER(code) = UPPER($1)`, code)
}

// GetForUpdate locks the promo row so usage_count can be checked and bumped atomically
func (r *PromoRepo) GetForUpdate(ctx context.Context, code string) (*models.PromoCode, error) {
	return r.get(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE UPPER(code) = UPPER($1) FOR UPDATE NOWAIT`, code)
}

func (r *PromoRepo) get(ctx context.Context, query, code string) (*models.PromoCode, error) {
	var p models.PromoCode
	err := sqlx.GetContext(ctx, r.db, &p, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundError("promo code")
	}
	if err != nil {
		return nil, translateError(err, "failed to get promo code")
	}
	return &p, nil
}

// IncrementUsage bumps usage_count unless the cap is reached
func (r *PromoRepo) IncrementUsage(ctx context.Context, code string) error {
	query := `
		UPDATE promo_codes
		SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE UPPER(code) = UPPER($1) AND usage_count < max_uses`

	result, err := r.db.ExecContext(ctx, query, code)
	if err != nil {
		return translateError(err, "failed to increment promo usage")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return translateError(err, "failed to get rows affected")
	}
	if rows == 0 {
		return models.NewSettlementError(models.KindInvalidPromo, "promo code usage limit reached", nil)
	}
	return nil
}
