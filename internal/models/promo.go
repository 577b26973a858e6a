package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType is either a percentage of the base amount or a flat amount
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

// PromoCode is a discount rule with a validity window and a usage cap
type PromoCode struct {
	Code             string              `json:"code" db:"code"`
	DiscountType     DiscountType        `json:"discount_type" db:"discount_type"`
	DiscountValue    decimal.Decimal     `json:"discount_value" db:"discount_value"`
	MaxDiscount      decimal.NullDecimal `json:"max_discount" db:"max_discount"`
	MinBookingAmount decimal.Decimal     `json:"min_booking_amount" db:"min_booking_amount"`
	ValidFrom        time.Time           `json:"valid_from" db:"valid_from"`
	ValidUntil       time.Time           `json:"valid_until" db:"valid_until"`
	MaxUses          int                 `json:"max_uses" db:"max_uses"`
	UsageCount       int                 `json:"usage_count" db:"usage_count"`
	IsActive         bool                `json:"is_active" db:"is_active"`
	CreatedAt        time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at" db:"updated_at"`
}

// HasUsesLeft reports whether the usage cap still allows a redemption
func (p *PromoCode) HasUsesLeft() bool {
	return p.UsageCount < p.MaxUses
}
