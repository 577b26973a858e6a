package services

import (
	"github.com/shopspring/decimal"
	"github.com/staybook/settlement-backend/internal/models"
)

// Fee and tax constants. The GST threshold is fixed and compared against the
// room base only, never against base plus meal delta or fees.
var (
	ServiceFeeRate = decimal.RequireFromString("0.05")
	ServiceFeeCap  = decimal.NewFromInt(500)
	GSTThreshold   = decimal.NewFromInt(7500)
	GSTLowRate     = decimal.RequireFromString("0.05")
	GSTHighRate    = decimal.RequireFromString("0.18")
)

// moneyPlaces is the precision every computed amount is rounded to
const moneyPlaces = 2

// CalculatePricing computes the full price breakdown. It is pure: no I/O and
// the same inputs always give the same result. Negative nights count as zero,
// and negative prices or wallet amounts are treated as zero.
func CalculatePricing(roomPrice decimal.Decimal, nights int, mealDelta, walletAmount decimal.Decimal) models.PricingBreakdown {
	if nights < 0 {
		nights = 0
	}
	if roomPrice.IsNegative() {
		roomPrice = decimal.Zero
	}
	if walletAmount.IsNegative() {
		walletAmount = decimal.Zero
	}
	n := decimal.NewFromInt(int64(nights))

	roomBase := roomPrice.Mul(n)
	base := roomPrice.Add(mealDelta).Mul(n)
	if base.IsNegative() {
		base = decimal.Zero
	}

	serviceFee := decimal.Min(roomBase.Mul(ServiceFeeRate), ServiceFeeCap).Round(moneyPlaces)

	gstRate := GSTLowRate
	if !roomBase.LessThan(GSTThreshold) {
		gstRate = GSTHighRate
	}
	gstAmount := roomBase.Mul(gstRate).Round(moneyPlaces)

	taxesTotal := serviceFee.Add(gstAmount)
	total := base.Add(taxesTotal)
	walletApplied := decimal.Min(walletAmount, total)

	return models.PricingBreakdown{
		RoomBase:          roomBase,
		BaseAmount:        base,
		ServiceFee:        serviceFee,
		GSTRate:           gstRate,
		GSTAmount:         gstAmount,
		TaxesTotal:        taxesTotal,
		TotalBeforeWallet: total,
		WalletApplied:     walletApplied,
		GatewayPayable:    total.Sub(walletApplied),
	}
}
