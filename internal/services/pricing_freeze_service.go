package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/database"
	"github.com/staybook/settlement-backend/internal/models"
)

// PricingFreezeService decides between live preview pricing and the frozen
// snapshot, and performs the one-time freeze write
type PricingFreezeService struct {
	catalog database.CatalogRepository
	promos  *PromoService
	logger  *logrus.Logger
}

// NewPricingFreezeService creates a new pricing freeze manager
func NewPricingFreezeService(catalog database.CatalogRepository, promos *PromoService, logger *logrus.Logger) *PricingFreezeService {
	return &PricingFreezeService{catalog: catalog, promos: promos, logger: logger}
}

// resolvePrices reads the current nightly room price and meal delta
func (s *PricingFreezeService) resolvePrices(ctx context.Context, roomTypeID uuid.UUID, mealPlanID *uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	roomType, err := s.catalog.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	mealDelta := decimal.Zero
	if mealPlanID != nil {
		plan, err := s.catalog.GetMealPlan(ctx, *mealPlanID)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		if plan.RoomTypeID != roomTypeID {
			return decimal.Zero, decimal.Zero, models.NewSettlementError(models.KindValidation,
				"meal plan does not belong to the room type", nil)
		}
		mealDelta = plan.PriceDelta
	}
	return roomType.Price, mealDelta, nil
}

// Preview recomputes pricing from the current catalog. It never writes.
func (s *PricingFreezeService) Preview(ctx context.Context, roomTypeID uuid.UUID, mealPlanID *uuid.UUID, nights int, walletAmount decimal.Decimal) (models.PricingBreakdown, error) {
	price, mealDelta, err := s.resolvePrices(ctx, roomTypeID, mealPlanID)
	if err != nil {
		return models.PricingBreakdown{}, err
	}
	return CalculatePricing(price, nights, mealDelta, walletAmount), nil
}

// PreviewBooking is Preview for an existing booking's room, meal plan and nights
func (s *PricingFreezeService) PreviewBooking(ctx context.Context, booking *models.Booking, walletAmount decimal.Decimal) (models.PricingBreakdown, error) {
	return s.Preview(ctx, booking.RoomTypeID, booking.MealPlanID, booking.Nights, walletAmount)
}

// Freeze returns the booking's snapshot, computing and persisting it on the
// first call. Later calls return the stored snapshot unchanged even if the
// catalog price moved. The booking must be locked by tx.
func (s *PricingFreezeService) Freeze(ctx context.Context, tx database.Tx, booking *models.Booking, now time.Time) (models.PricingSnapshot, error) {
	if snap, ok := booking.Pricing.Frozen(); ok {
		return snap, nil
	}

	breakdown, err := s.PreviewBooking(ctx, booking, decimal.Zero)
	if err != nil {
		return models.PricingSnapshot{}, err
	}

	discount := decimal.Zero
	if booking.PromoCode != nil {
		promo, err := s.promos.Lookup(ctx, tx, *booking.PromoCode)
		if err != nil {
			return models.PricingSnapshot{}, err
		}
		discount = s.promos.ComputeDiscount(promo, breakdown.BaseAmount, now)
		if discount.IsZero() {
			s.logger.WithFields(logrus.Fields{
				"booking_id": booking.ID,
				"promo_code": *booking.PromoCode,
			}).Warn("Promo no longer applies at freeze, dropping it")
			booking.PromoCode = nil
		}
	}

	snap := models.SnapshotFromBreakdown(breakdown, discount, now)
	written, err := tx.Bookings().FreezePricing(ctx, booking.ID, snap)
	if err != nil {
		return models.PricingSnapshot{}, err
	}
	if !written {
		stored, err := tx.Bookings().GetForUpdate(ctx, booking.ID)
		if err != nil {
			return models.PricingSnapshot{}, err
		}
		existing, ok := stored.Pricing.Frozen()
		if !ok {
			return models.PricingSnapshot{}, models.ErrPricingNotFrozen
		}
		booking.Pricing = stored.Pricing
		booking.PromoCode = stored.PromoCode
		booking.PromoDiscount = existing.PromoDiscount
		return existing, nil
	}

	booking.Pricing = models.FrozenPricing(snap)
	booking.PromoDiscount = discount

	s.logger.WithFields(logrus.Fields{
		"booking_id":          booking.ID,
		"total_before_wallet": snap.TotalBeforeWallet.StringFixed(moneyPlaces),
		"promo_discount":      discount.StringFixed(moneyPlaces),
		"gst_rate":            snap.GSTRateApplied.String(),
	}).Info("Pricing frozen")
	return snap, nil
}

// Payable applies walletAmount against the frozen total. It never reruns the
// calculator, so repeated calls with the same wallet amount agree exactly.
func (s *PricingFreezeService) Payable(booking *models.Booking, walletAmount decimal.Decimal) (models.PayableAmount, error) {
	snap, ok := booking.Pricing.Frozen()
	if !ok {
		return models.PayableAmount{}, models.ErrPricingNotFrozen
	}

	due := snap.TotalBeforeWallet.Sub(snap.PromoDiscount)
	if due.IsNegative() {
		due = decimal.Zero
	}
	if walletAmount.IsNegative() {
		walletAmount = decimal.Zero
	}
	walletApplied := decimal.Min(walletAmount, due)

	return models.PayableAmount{
		TotalBeforeWallet: snap.TotalBeforeWallet,
		PromoDiscount:     snap.PromoDiscount,
		AmountDue:         due,
		WalletApplied:     walletApplied,
		GatewayPayable:    due.Sub(walletApplied),
	}, nil
}
