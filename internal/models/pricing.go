package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PricingBreakdown is the live result of the tax/fee calculator.
// It is recomputed on every preview and never persisted.
type PricingBreakdown struct {
	RoomBase          decimal.Decimal `json:"room_base"`
	BaseAmount        decimal.Decimal `json:"base_amount"`
	ServiceFee        decimal.Decimal `json:"service_fee"`
	GSTRate           decimal.Decimal `json:"gst_rate"`
	GSTAmount         decimal.Decimal `json:"gst_amount"`
	TaxesTotal        decimal.Decimal `json:"taxes_total"`
	TotalBeforeWallet decimal.Decimal `json:"total_before_wallet"`
	WalletApplied     decimal.Decimal `json:"wallet_applied"`
	GatewayPayable    decimal.Decimal `json:"gateway_payable"`
}

// PricingSnapshot is the immutable breakdown persisted on a booking at freeze time
type PricingSnapshot struct {
	BaseAmount        decimal.Decimal `json:"base_amount"`
	ServiceFee        decimal.Decimal `json:"service_fee"`
	GSTAmount         decimal.Decimal `json:"gst_amount"`
	GSTRateApplied    decimal.Decimal `json:"gst_rate_applied"`
	TaxesTotal        decimal.Decimal `json:"taxes_total"`
	TotalBeforeWallet decimal.Decimal `json:"total_before_wallet"`
	PromoDiscount     decimal.Decimal `json:"promo_discount"`
	FrozenAt          time.Time       `json:"frozen_at"`
}

// SnapshotFromBreakdown captures the persisted subset of a breakdown
func SnapshotFromBreakdown(b PricingBreakdown, promoDiscount decimal.Decimal, frozenAt time.Time) PricingSnapshot {
	return PricingSnapshot{
		BaseAmount:        b.BaseAmount,
		ServiceFee:        b.ServiceFee,
		GSTAmount:         b.GSTAmount,
		GSTRateApplied:    b.GSTRate,
		TaxesTotal:        b.TaxesTotal,
		TotalBeforeWallet: b.TotalBeforeWallet,
		PromoDiscount:     promoDiscount,
		FrozenAt:          frozenAt,
	}
}

// Equal reports whether two snapshots carry identical amounts
func (s PricingSnapshot) Equal(o PricingSnapshot) bool {
	return s.BaseAmount.Equal(o.BaseAmount) &&
		s.ServiceFee.Equal(o.ServiceFee) &&
		s.GSTAmount.Equal(o.GSTAmount) &&
		s.GSTRateApplied.Equal(o.GSTRateApplied) &&
		s.TaxesTotal.Equal(o.TaxesTotal) &&
		s.TotalBeforeWallet.Equal(o.TotalBeforeWallet) &&
		s.PromoDiscount.Equal(o.PromoDiscount) &&
		s.FrozenAt.Equal(o.FrozenAt)
}

// Pricing is either Unset or Frozen(snapshot).
// The zero value is Unset. A Frozen value hands out copies only, so the
// snapshot cannot be mutated through it.
type Pricing struct {
	snapshot *PricingSnapshot
}

// UnsetPricing returns the Unset variant
func UnsetPricing() Pricing {
	return Pricing{}
}

// FrozenPricing returns the Frozen variant holding a private copy of s
func FrozenPricing(s PricingSnapshot) Pricing {
	cp := s
	return Pricing{snapshot: &cp}
}

// Frozen returns the snapshot and true when the pricing has been frozen
func (p Pricing) Frozen() (PricingSnapshot, bool) {
	if p.snapshot == nil {
		return PricingSnapshot{}, false
	}
	return *p.snapshot, true
}

// IsFrozen reports whether the pricing is in the Frozen variant
func (p Pricing) IsFrozen() bool {
	return p.snapshot != nil
}

// MarshalJSON renders Unset as null
func (p Pricing) MarshalJSON() ([]byte, error) {
	if p.snapshot == nil {
		return []byte("null"), nil
	}
	return json.Marshal(p.snapshot)
}

// UnmarshalJSON accepts null or a snapshot object
func (p *Pricing) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		p.snapshot = nil
		return nil
	}
	var s PricingSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	p.snapshot = &s
	return nil
}

// Value implements driver.Valuer for the nullable JSONB column
func (p Pricing) Value() (driver.Value, error) {
	if p.snapshot == nil {
		return nil, nil
	}
	return json.Marshal(p.snapshot)
}

// Scan implements sql.Scanner for the nullable JSONB column
func (p *Pricing) Scan(value interface{}) error {
	if value == nil {
		p.snapshot = nil
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
	if len(raw) == 0 {
		p.snapshot = nil
		return nil
	}
	var s PricingSnapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("failed to unmarshal pricing_snapshot: %w", err)
	}
	p.snapshot = &s
	return nil
}

// PayableAmount is what the payment flow charges, derived from a frozen snapshot
type PayableAmount struct {
	TotalBeforeWallet decimal.Decimal `json:"total_before_wallet"`
	PromoDiscount     decimal.Decimal `json:"promo_discount"`
	AmountDue         decimal.Decimal `json:"amount_due"`
	WalletApplied     decimal.Decimal `json:"wallet_applied"`
	GatewayPayable    decimal.Decimal `json:"gateway_payable"`
}

// PreviewPriceRequest is the input of the live pricing preview
type PreviewPriceRequest struct {
	RoomTypeID   string          `json:"room_type_id" binding:"required"`
	Nights       int             `json:"nights"`
	MealPlanID   *string         `json:"meal_plan_id,omitempty"`
	WalletAmount decimal.Decimal `json:"wallet_amount"`
}
