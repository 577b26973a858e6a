package memstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/staybook/settlement-backend/internal/models"
)

// Fixed ids so a local client can book against a fresh process
var (
	DemoHotelID    = uuid.MustParse("6f1c8a52-3b0e-4c4e-9d55-0a7e2f9b1c01")
	DemoRoomTypeID = uuid.MustParse("6f1c8a52-3b0e-4c4e-9d55-0a7e2f9b1c02")
	DemoMealPlanID = uuid.MustParse("6f1c8a52-3b0e-4c4e-9d55-0a7e2f9b1c03")
	DemoUserID     = uuid.MustParse("6f1c8a52-3b0e-4c4e-9d55-0a7e2f9b1c04")
)

// DemoPromoCode is valid for 30 days from seeding
const DemoPromoCode = "WELCOME10"

// SeedDemo loads one room type, meal plan, user and promo code
func (s *Store) SeedDemo(now time.Time) {
	s.AddRoomType(models.RoomType{
		ID:         DemoRoomTypeID,
		HotelID:    DemoHotelID,
		Name:       "Deluxe Double",
		Price:      decimal.NewFromInt(6000),
		TotalRooms: 10,
		CancellationPolicy: models.CancellationPolicy{
			FreeCancellationHours: 48,
			RefundPercentage:      decimal.NewFromInt(100),
			LateRefundPercentage:  decimal.NewFromInt(50),
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	s.AddMealPlan(models.MealPlan{
		ID:         DemoMealPlanID,
		RoomTypeID: DemoRoomTypeID,
		Name:       "Breakfast",
		PriceDelta: decimal.NewFromInt(800),
		CreatedAt:  now,
	})
	s.AddUser(models.User{
		ID:        DemoUserID,
		Phone:     "+910000000000",
		FirstName: "Demo",
		Status:    "active",
		CreatedAt: now,
	})
	s.AddPromo(models.PromoCode{
		Code:             DemoPromoCode,
		DiscountType:     models.DiscountPercentage,
		DiscountValue:    decimal.NewFromInt(10),
		MaxDiscount:      decimal.NewNullDecimal(decimal.NewFromInt(1500)),
		MinBookingAmount: decimal.NewFromInt(1000),
		ValidFrom:        now,
		ValidUntil:       now.AddDate(0, 0, 30),
		MaxUses:          100,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}
