package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/database"
	"github.com/staybook/settlement-backend/internal/models"
)

var hundred = decimal.NewFromInt(100)

// PromoService evaluates promo code rules and records usage at confirmation
type PromoService struct {
	logger *logrus.Logger
}

// NewPromoService creates a new promo validator
func NewPromoService(logger *logrus.Logger) *PromoService {
	return &PromoService{logger: logger}
}

// IsValid reports whether the promo is active, inside its window and under its cap
func (s *PromoService) IsValid(p *models.PromoCode, now time.Time) bool {
	if p == nil || !p.IsActive {
		return false
	}
	if now.Before(p.ValidFrom) || now.After(p.ValidUntil) {
		return false
	}
	return p.HasUsesLeft()
}

// CanApply reports whether amount meets the promo's minimum
func (s *PromoService) CanApply(p *models.PromoCode, amount decimal.Decimal) bool {
	return p != nil && !amount.LessThan(p.MinBookingAmount)
}

// ComputeDiscount returns the discount on baseAmount, or zero when the promo
// is invalid or inapplicable. The discount never exceeds baseAmount.
func (s *PromoService) ComputeDiscount(p *models.PromoCode, baseAmount decimal.Decimal, now time.Time) decimal.Decimal {
	if !s.IsValid(p, now) || !s.CanApply(p, baseAmount) {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch p.DiscountType {
	case models.DiscountPercentage:
		discount = baseAmount.Mul(p.DiscountValue).Div(hundred).Round(moneyPlaces)
		if p.MaxDiscount.Valid && discount.GreaterThan(p.MaxDiscount.Decimal) {
			discount = p.MaxDiscount.Decimal
		}
	case models.DiscountFlat:
		discount = p.DiscountValue
	default:
		return decimal.Zero
	}

	if discount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(discount, baseAmount)
}

// Validate computes the discount and explains why a code is rejected
func (s *PromoService) Validate(p *models.PromoCode, baseAmount decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	switch {
	case p == nil:
		return decimal.Zero, models.NewSettlementError(models.KindInvalidPromo, "promo code does not exist", nil)
	case !p.IsActive:
		return decimal.Zero, models.NewSettlementError(models.KindInvalidPromo, "promo code is not active", nil)
	case now.Before(p.ValidFrom):
		return decimal.Zero, models.NewSettlementError(models.KindInvalidPromo, "promo code is not valid yet", nil)
	case now.After(p.ValidUntil):
		return decimal.Zero, models.NewSettlementError(models.KindInvalidPromo, "promo code has expired", nil)
	case p.UsageCount >= p.MaxUses:
		return decimal.Zero, models.NewSettlementError(models.KindInvalidPromo, "promo code usage limit reached", nil)
	case !s.CanApply(p, baseAmount):
		return decimal.Zero, models.NewSettlementError(models.KindInvalidPromo,
			"booking amount is below the promo minimum of "+p.MinBookingAmount.StringFixed(moneyPlaces), nil)
	}

	discount := s.ComputeDiscount(p, baseAmount, now)
	if !discount.IsPositive() {
		return decimal.Zero, models.NewSettlementError(models.KindInvalidPromo, "promo code gives no discount", nil)
	}
	return discount, nil
}

// Lookup loads a promo code, returning nil when it does not exist
func (s *PromoService) Lookup(ctx context.Context, tx database.Tx, code string) (*models.PromoCode, error) {
	p, err := tx.Promos().Get(ctx, strings.TrimSpace(code))
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// RecordUsage atomically re-checks the cap under the promo row lock and
// increments usage_count. Called only when a booking is confirmed; the
// discount was validated at freeze time, so only the cap is enforced.
func (s *PromoService) RecordUsage(ctx context.Context, tx database.Tx, code string) error {
	p, err := tx.Promos().GetForUpdate(ctx, code)
	if errors.Is(err, models.ErrNotFound) {
		return models.NewSettlementError(models.KindInvalidPromo, "promo code does not exist", nil)
	}
	if err != nil {
		return err
	}
	if !p.HasUsesLeft() {
		return models.NewSettlementError(models.KindInvalidPromo, "promo code usage limit reached", nil)
	}
	if err := tx.Promos().IncrementUsage(ctx, p.Code); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"promo_code":  p.Code,
		"usage_count": p.UsageCount + 1,
	}).Debug("Promo usage recorded")
	return nil
}
