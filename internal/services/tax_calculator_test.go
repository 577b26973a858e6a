package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s: want %s, got %s", msg, want, got.String())
}

func TestCalculatePricing_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		roomPrice  string
		nights     int
		mealDelta  string
		wallet     string
		base       string
		serviceFee string
		gstRate    string
		gst        string
		total      string
		gateway    string
	}{
		{"two nights above threshold with capped fee", "6000", 2, "0", "0", "12000", "500", "0.18", "2160", "14660", "14660"},
		{"one night below threshold", "3000", 1, "0", "0", "3000", "150", "0.05", "150", "3300", "3300"},
		{"meal delta never moves the tier", "3000", 2, "1000", "0", "8000", "300", "0.05", "300", "8600", "8600"},
		{"wallet reduces gateway payable", "3000", 1, "0", "1000", "3000", "150", "0.05", "150", "3300", "2300"},
		{"wallet larger than total", "3000", 1, "0", "5000", "3000", "150", "0.05", "150", "3300", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePricing(d(tt.roomPrice), tt.nights, d(tt.mealDelta), d(tt.wallet))

			assertMoney(t, tt.base, got.BaseAmount, "base")
			assertMoney(t, tt.serviceFee, got.ServiceFee, "service fee")
			assertMoney(t, tt.gstRate, got.GSTRate, "gst rate")
			assertMoney(t, tt.gst, got.GSTAmount, "gst")
			assertMoney(t, tt.total, got.TotalBeforeWallet, "total")
			assertMoney(t, tt.gateway, got.GatewayPayable, "gateway payable")
			assert.True(t, got.TaxesTotal.Equal(got.ServiceFee.Add(got.GSTAmount)))
			assert.True(t, got.TotalBeforeWallet.Equal(got.WalletApplied.Add(got.GatewayPayable)))
		})
	}
}

func TestCalculatePricing_GSTBoundary(t *testing.T) {
	below := CalculatePricing(d("7499.99"), 1, decimal.Zero, decimal.Zero)
	assertMoney(t, "0.05", below.GSTRate, "just below threshold")

	at := CalculatePricing(d("7500"), 1, decimal.Zero, decimal.Zero)
	assertMoney(t, "0.18", at.GSTRate, "at threshold")
	assertMoney(t, "1350", at.GSTAmount, "gst at threshold")
}

func TestCalculatePricing_ServiceFeeCap(t *testing.T) {
	assertMoney(t, "500", CalculatePricing(d("20000"), 1, decimal.Zero, decimal.Zero).ServiceFee, "capped")
	assertMoney(t, "50", CalculatePricing(d("1000"), 1, decimal.Zero, decimal.Zero).ServiceFee, "uncapped")
	assertMoney(t, "500", CalculatePricing(d("10000"), 1, decimal.Zero, decimal.Zero).ServiceFee, "exactly cap")
}

func TestCalculatePricing_Rounding(t *testing.T) {
	got := CalculatePricing(d("999.99"), 3, decimal.Zero, decimal.Zero)

	// 2999.97 * 0.05 = 149.9985
	assertMoney(t, "150.00", got.ServiceFee, "fee rounded")
	assertMoney(t, "150.00", got.GSTAmount, "gst rounded")
	assert.True(t, got.ServiceFee.Equal(got.ServiceFee.Round(2)))
}

func TestCalculatePricing_Degenerate(t *testing.T) {
	t.Run("negative nights count as zero", func(t *testing.T) {
		got := CalculatePricing(d("5000"), -2, decimal.Zero, decimal.Zero)
		assert.True(t, got.TotalBeforeWallet.IsZero())
		assert.True(t, got.GatewayPayable.IsZero())
	})

	t.Run("zero nights", func(t *testing.T) {
		got := CalculatePricing(d("5000"), 0, d("500"), d("100"))
		assert.True(t, got.TotalBeforeWallet.IsZero())
		assert.True(t, got.WalletApplied.IsZero())
	})

	t.Run("negative wallet is ignored", func(t *testing.T) {
		got := CalculatePricing(d("3000"), 1, decimal.Zero, d("-100"))
		assertMoney(t, "3300", got.GatewayPayable, "gateway")
	})

	t.Run("same inputs same outputs", func(t *testing.T) {
		a := CalculatePricing(d("4321.5"), 3, d("250"), d("10"))
		b := CalculatePricing(d("4321.5"), 3, d("250"), d("10"))
		assert.Equal(t, a, b)
	})
}
