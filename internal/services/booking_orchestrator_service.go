package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/database"
	"github.com/staybook/settlement-backend/internal/metrics"
	"github.com/staybook/settlement-backend/internal/models"
	"github.com/staybook/settlement-backend/internal/notify"
)

// BookingOrchestratorConfig holds configuration for the orchestrator
type BookingOrchestratorConfig struct {
	Retry     RetryPolicy // Lock contention retries (default 3 x 25ms)
	Currency  string      // Default currency (default INR)
	MaxNights int         // Longest bookable stay (default 30)
}

// DefaultMaxNights caps a stay when the config leaves MaxNights unset
const DefaultMaxNights = 30

// DefaultOrchestratorConfig returns default configuration
func DefaultOrchestratorConfig() BookingOrchestratorConfig {
	return BookingOrchestratorConfig{
		Retry:     DefaultRetryPolicy(),
		Currency:  "INR",
		MaxNights: DefaultMaxNights,
	}
}

// BookingOrchestratorService drives a booking through
// DRAFT -> RESERVED -> PENDING_PAYMENT -> CONFIRMED, with EXPIRED and
// CANCELLED as the alternate endings
type BookingOrchestratorService struct {
	store     database.Store
	pricing   *PricingFreezeService
	promos    *PromoService
	inventory *InventoryService
	wallets   *WalletService
	gateway   ChargeGateway
	events    *notify.Dispatcher
	clock     Clock
	config    BookingOrchestratorConfig
	logger    *logrus.Logger
}

// NewBookingOrchestratorService creates a new orchestrator service
func NewBookingOrchestratorService(
	store database.Store,
	pricing *PricingFreezeService,
	promos *PromoService,
	inventory *InventoryService,
	wallets *WalletService,
	gateway ChargeGateway,
	events *notify.Dispatcher,
	clock Clock,
	config BookingOrchestratorConfig,
	logger *logrus.Logger,
) *BookingOrchestratorService {
	if clock == nil {
		clock = SystemClock
	}
	if config.MaxNights <= 0 {
		config.MaxNights = DefaultMaxNights
	}
	return &BookingOrchestratorService{
		store:     store,
		pricing:   pricing,
		promos:    promos,
		inventory: inventory,
		wallets:   wallets,
		gateway:   gateway,
		events:    events,
		clock:     clock,
		config:    config,
		logger:    logger,
	}
}

// ============================================================================
// PREVIEW
// ============================================================================

// PreviewPrice computes live pricing from the current catalog
func (s *BookingOrchestratorService) PreviewPrice(ctx context.Context, req *models.PreviewPriceRequest) (models.PricingBreakdown, error) {
	roomTypeID, err := uuid.Parse(req.RoomTypeID)
	if err != nil {
		return models.PricingBreakdown{}, models.NewSettlementError(models.KindValidation, "invalid room_type_id", err)
	}
	var mealPlanID *uuid.UUID
	if req.MealPlanID != nil && *req.MealPlanID != "" {
		id, err := uuid.Parse(*req.MealPlanID)
		if err != nil {
			return models.PricingBreakdown{}, models.NewSettlementError(models.KindValidation, "invalid meal_plan_id", err)
		}
		mealPlanID = &id
	}
	return s.pricing.Preview(ctx, roomTypeID, mealPlanID, req.Nights, req.WalletAmount)
}

// ============================================================================
// CREATE & RESERVE
// ============================================================================

// Create stores a DRAFT booking. The room type's cancellation policy is
// copied onto the booking here and never re-read.
func (s *BookingOrchestratorService) Create(ctx context.Context, userID uuid.UUID, req *models.CreateBookingRequest) (*models.Booking, error) {
	roomTypeID, mealPlanID, stay, err := req.Validate()
	if err != nil {
		return nil, err
	}
	if stay.Nights() > s.config.MaxNights {
		return nil, models.NewSettlementError(models.KindValidation,
			fmt.Sprintf("stay of %d nights exceeds the %d night limit", stay.Nights(), s.config.MaxNights), nil)
	}
	today := s.clock().UTC().Truncate(24 * time.Hour)
	if stay.CheckIn.Before(today) {
		return nil, models.NewSettlementError(models.KindValidation, "check_in is in the past", nil)
	}

	user, err := s.store.Users().GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, models.NewSettlementError(models.KindForbidden, "user account is not active", nil)
	}

	roomType, err := s.store.Catalog().GetRoomType(ctx, roomTypeID)
	if err != nil {
		return nil, err
	}
	if mealPlanID != nil {
		plan, err := s.store.Catalog().GetMealPlan(ctx, *mealPlanID)
		if err != nil {
			return nil, err
		}
		if plan.RoomTypeID != roomTypeID {
			return nil, models.NewSettlementError(models.KindValidation, "meal plan does not belong to the room type", nil)
		}
	}

	now := s.clock()
	booking := &models.Booking{
		ID:                 uuid.New(),
		UserID:             userID,
		Status:             models.BookingStatusDraft,
		RoomTypeID:         roomTypeID,
		MealPlanID:         mealPlanID,
		RoomCount:          req.RoomCount,
		Nights:             stay.Nights(),
		CheckIn:            stay.CheckIn,
		CheckOut:           stay.CheckOut,
		Pricing:            models.UnsetPricing(),
		InventoryState:     models.InventoryNone,
		WalletApplied:      decimal.Zero,
		PromoDiscount:      decimal.Zero,
		CancellationPolicy: roomType.CancellationPolicy,
		AmountPaid:         decimal.Zero,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.store.WithTx(ctx, func(tx database.Tx) error {
		return tx.Bookings().Insert(ctx, booking)
	}); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	metrics.IncBookingTransition(string(models.BookingStatusDraft))
	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"user_id":      userID,
		"room_type_id": roomTypeID,
		"nights":       booking.Nights,
		"room_count":   booking.RoomCount,
	}).Info("Booking created")

	return booking, nil
}

// Submit reserves inventory for a DRAFT booking. On failure the booking
// stays DRAFT.
func (s *BookingOrchestratorService) Submit(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	draft, err := s.store.Bookings().GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	roomType, err := s.store.Catalog().GetRoomType(ctx, draft.RoomTypeID)
	if err != nil {
		return nil, err
	}

	var booking *models.Booking
	err = withRetry(ctx, s.config.Retry, func() error {
		return s.store.WithTx(ctx, func(tx database.Tx) error {
			b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
			if err != nil {
				return err
			}
			if err := s.inventory.Reserve(ctx, tx, b, roomType.TotalRooms, s.clock()); err != nil {
				return err
			}
			if err := tx.Bookings().Update(ctx, b); err != nil {
				return err
			}
			booking = b
			return nil
		})
	})
	if err != nil {
		err = surfaceContention(err, models.KindInventoryUnavailable, "rooms are busy, please try again")
		if errors.Is(err, models.ErrInventoryUnavailable) {
			metrics.IncInventoryRejected()
		}
		return nil, err
	}

	metrics.IncBookingTransition(string(models.BookingStatusReserved))
	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"expires_at": booking.ExpiresAt,
	}).Info("Rooms reserved")
	s.events.Dispatch(notify.EventBookingReserved, booking)

	return booking, nil
}

// CreateAndReserve creates a booking and reserves its rooms. When the rooms
// are unavailable the DRAFT booking remains and InventoryUnavailable is returned.
func (s *BookingOrchestratorService) CreateAndReserve(ctx context.Context, userID uuid.UUID, req *models.CreateBookingRequest) (*models.Booking, error) {
	booking, err := s.Create(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, booking.ID)
}

// ============================================================================
// LOCK PRICE & PROMO
// ============================================================================

// LockPrice freezes the booking's pricing and moves it to PENDING_PAYMENT.
// Calling it again returns the stored snapshot. A lapsed hold expires the
// booking and fails with ReservationExpired.
func (s *BookingOrchestratorService) LockPrice(ctx context.Context, userID, bookingID uuid.UUID) (*models.LockPriceResponse, error) {
	var (
		response *models.LockPriceResponse
		expired  bool
	)

	err := withRetry(ctx, s.config.Retry, func() error {
		expired = false
		return s.store.WithTx(ctx, func(tx database.Tx) error {
			b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
			if err != nil {
				return err
			}
			if b.UserID != userID {
				return models.ErrForbidden
			}

			if snap, ok := b.Pricing.Frozen(); ok && b.Status != models.BookingStatusReserved {
				response = &models.LockPriceResponse{BookingID: b.ID, Status: b.Status, Pricing: snap, ExpiresAt: b.ExpiresAt}
				return nil
			}
			if b.Status != models.BookingStatusReserved {
				return models.NewSettlementError(models.KindInvalidTransition,
					fmt.Sprintf("cannot lock the price of a %s booking", b.Status), nil)
			}

			now := s.clock()
			if b.IsExpired(now) {
				expired = true
				return models.ErrReservationExpired
			}

			snap, err := s.pricing.Freeze(ctx, tx, b, now)
			if err != nil {
				return err
			}
			if err := b.Transition(models.BookingStatusPendingPayment, now); err != nil {
				return err
			}
			if err := tx.Bookings().Update(ctx, b); err != nil {
				return err
			}
			response = &models.LockPriceResponse{BookingID: b.ID, Status: b.Status, Pricing: snap, ExpiresAt: b.ExpiresAt}
			return nil
		})
	})

	if expired {
		if _, expErr := s.ExpireBooking(ctx, bookingID); expErr != nil {
			s.logger.WithError(expErr).WithField("booking_id", bookingID).Warn("Failed to expire lapsed booking")
		}
		return nil, models.ErrReservationExpired
	}
	if err != nil {
		return nil, err
	}

	metrics.IncBookingTransition(string(response.Status))
	return response, nil
}

// ApplyPromo validates a code against the booking's base amount and attaches
// it. Only allowed before the price is locked; the discount is recomputed and
// frozen by LockPrice.
func (s *BookingOrchestratorService) ApplyPromo(ctx context.Context, userID, bookingID uuid.UUID, code string) (*models.ApplyPromoResponse, error) {
	var response *models.ApplyPromoResponse

	err := withRetry(ctx, s.config.Retry, func() error {
		return s.store.WithTx(ctx, func(tx database.Tx) error {
			b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
			if err != nil {
				return err
			}
			if b.UserID != userID {
				return models.ErrForbidden
			}
			if b.Pricing.IsFrozen() || (b.Status != models.BookingStatusDraft && b.Status != models.BookingStatusReserved) {
				return models.NewSettlementError(models.KindInvalidTransition,
					"promo codes can only be applied before the price is locked", nil)
			}

			now := s.clock()
			if b.Status == models.BookingStatusReserved && b.IsExpired(now) {
				return models.ErrReservationExpired
			}

			promo, err := s.promos.Lookup(ctx, tx, code)
			if err != nil {
				return err
			}
			breakdown, err := s.pricing.PreviewBooking(ctx, b, decimal.Zero)
			if err != nil {
				return err
			}
			discount, err := s.promos.Validate(promo, breakdown.BaseAmount, now)
			if err != nil {
				return err
			}

			b.PromoCode = &promo.Code
			b.PromoDiscount = discount
			b.UpdatedAt = now
			if err := tx.Bookings().Update(ctx, b); err != nil {
				return err
			}
			response = &models.ApplyPromoResponse{BookingID: b.ID, Code: promo.Code, Discount: discount}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"promo_code": response.Code,
		"discount":   response.Discount.StringFixed(moneyPlaces),
	}).Info("Promo applied")
	return response, nil
}

// ============================================================================
// CONFIRM PAYMENT
// ============================================================================

// ConfirmPayment charges the gateway and confirms the booking.
// The gateway is charged before the confirm transaction, so a confirm that
// fails after a successful charge is a reconciliation failure: the booking is
// flagged for review and an open audit entry is written. Calling it again
// with the same gateway reference on a CONFIRMED booking returns the booking.
func (s *BookingOrchestratorService) ConfirmPayment(ctx context.Context, userID, bookingID uuid.UUID, walletAmount decimal.Decimal, reference string) (*models.Booking, error) {
	if reference == "" {
		return nil, models.NewSettlementError(models.KindValidation, "gateway_reference is required", nil)
	}

	booking, err := s.store.Bookings().GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, models.ErrForbidden
	}

	if booking.Status == models.BookingStatusConfirmed {
		if booking.GatewayReference != nil && *booking.GatewayReference == reference {
			return booking, nil
		}
		return nil, models.NewSettlementError(models.KindInvalidTransition, "booking is already confirmed", nil)
	}
	// A flagged booking may already hold a captured charge
	if booking.NeedsReview {
		return nil, underReview()
	}
	if booking.Status == models.BookingStatusExpired {
		return nil, models.ErrReservationExpired
	}
	if booking.Status != models.BookingStatusPendingPayment {
		return nil, models.NewSettlementError(models.KindInvalidTransition,
			fmt.Sprintf("cannot pay for a %s booking, lock the price first", booking.Status), nil)
	}
	if booking.IsExpired(s.clock()) {
		s.expireQuietly(ctx, bookingID)
		return nil, models.ErrReservationExpired
	}

	payable, err := s.pricing.Payable(booking, walletAmount)
	if err != nil {
		return nil, err
	}

	// Pre-checks so the post-charge window only fails on true races
	if err := s.precheckPayment(ctx, booking, payable); err != nil {
		metrics.IncPaymentResult("rejected")
		return nil, err
	}

	logger := s.logger.WithFields(logrus.Fields{
		"booking_id":        bookingID,
		"user_id":           userID,
		"gateway_reference": reference,
		"amount":            payable.GatewayPayable.StringFixed(moneyPlaces),
	})

	// Once the gateway is called the outcome must be recorded even if the
	// caller goes away
	settleCtx := context.WithoutCancel(ctx)

	var charge *ChargeResult
	if payable.GatewayPayable.IsPositive() {
		charge, err = s.gateway.Charge(ctx, payable.GatewayPayable, reference)
		if err != nil || charge == nil || !charge.Success {
			cause := err
			switch {
			case cause != nil:
			case charge == nil:
				cause = errors.New("gateway returned no result")
			default:
				cause = errors.New(charge.Message)
			}
			s.recordChargeFailure(settleCtx, booking, payable, reference, cause)
			metrics.IncPaymentResult("declined")
			logger.WithError(cause).Warn("Gateway charge failed")
			return nil, models.NewSettlementError(models.KindPaymentFailure, models.ErrPaymentFailure.Message, cause)
		}
	}
	charged := charge != nil

	var confirmed *models.Booking
	err = withRetry(settleCtx, s.config.Retry, func() error {
		return s.store.WithTx(settleCtx, func(tx database.Tx) error {
			b, err := s.finalizeConfirmation(settleCtx, tx, bookingID, payable, reference, charge)
			if err != nil {
				return err
			}
			confirmed = b
			return nil
		})
	})

	if err != nil {
		if charged {
			return nil, s.flagForReconciliation(settleCtx, booking, payable, reference, charge, err)
		}
		if errors.Is(err, models.ErrReservationExpired) {
			s.expireQuietly(settleCtx, bookingID)
		}
		metrics.IncPaymentResult("rejected")
		return nil, surfaceContention(err, models.KindInsufficientBalance, "wallet is busy, please try again")
	}

	metrics.IncPaymentResult("confirmed")
	metrics.IncBookingTransition(string(models.BookingStatusConfirmed))
	logger.WithField("amount_paid", confirmed.AmountPaid.StringFixed(moneyPlaces)).Info("Booking confirmed")
	s.events.Dispatch(notify.EventBookingConfirmed, confirmed)

	return confirmed, nil
}

// precheckPayment re-checks the wallet balance and the promo usage cap
// before any money moves. The promo discount is already frozen into the
// snapshot, so its validity window is not re-evaluated here.
func (s *BookingOrchestratorService) precheckPayment(ctx context.Context, booking *models.Booking, payable models.PayableAmount) error {
	if payable.WalletApplied.IsPositive() {
		balance, err := s.wallets.Balance(ctx, booking.UserID)
		if err != nil {
			return err
		}
		if balance.LessThan(payable.WalletApplied) {
			return models.NewSettlementError(models.KindInsufficientBalance,
				"wallet balance "+balance.StringFixed(moneyPlaces)+" is below "+payable.WalletApplied.StringFixed(moneyPlaces), nil)
		}
	}

	if booking.PromoCode != nil {
		return s.store.WithTx(ctx, func(tx database.Tx) error {
			promo, err := s.promos.Lookup(ctx, tx, *booking.PromoCode)
			if err != nil {
				return err
			}
			if promo == nil {
				return models.NewSettlementError(models.KindInvalidPromo, "promo code not found", nil)
			}
			if !promo.HasUsesLeft() {
				return models.NewSettlementError(models.KindInvalidPromo, "promo code usage limit reached", nil)
			}
			return nil
		})
	}
	return nil
}

// finalizeConfirmation confirms inventory, deducts the wallet, records promo
// usage and marks the booking CONFIRMED, all in tx
func (s *BookingOrchestratorService) finalizeConfirmation(
	ctx context.Context,
	tx database.Tx,
	bookingID uuid.UUID,
	payable models.PayableAmount,
	reference string,
	charge *ChargeResult,
) (*models.Booking, error) {
	b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingStatusPendingPayment {
		if b.Status == models.BookingStatusExpired {
			return nil, models.ErrReservationExpired
		}
		return nil, models.NewSettlementError(models.KindInvalidTransition,
			fmt.Sprintf("booking became %s during payment", b.Status), nil)
	}
	if b.NeedsReview {
		return nil, underReview()
	}

	now := s.clock()
	if err := s.inventory.Confirm(ctx, tx, b, now); err != nil {
		return nil, err
	}

	if payable.WalletApplied.IsPositive() {
		if _, err := s.wallets.Deduct(ctx, tx, b.UserID, payable.WalletApplied, "Booking "+b.ID.String(), &b.ID); err != nil {
			return nil, err
		}
	}

	if b.PromoCode != nil {
		if err := s.promos.RecordUsage(ctx, tx, *b.PromoCode); err != nil {
			return nil, err
		}
	}

	if err := b.Transition(models.BookingStatusConfirmed, now); err != nil {
		return nil, err
	}
	b.WalletApplied = payable.WalletApplied
	b.AmountPaid = payable.AmountDue
	b.GatewayReference = &reference
	if err := tx.Bookings().Update(ctx, b); err != nil {
		return nil, err
	}

	audit := models.NewPaymentAudit(models.PaymentEventBookingConfirmed, b.ID, reference).
		SetAmounts(payable.GatewayPayable, payable.WalletApplied)
	if charge != nil {
		audit.SetTransactionID(charge.TransactionID)
	}
	audit.CreatedAt = now
	if err := tx.PaymentAudits().Log(ctx, audit); err != nil {
		return nil, err
	}
	return b, nil
}

// flagForReconciliation records a charge that could not be matched by an
// internal confirmation. Nothing here retries the confirm automatically.
func (s *BookingOrchestratorService) flagForReconciliation(
	ctx context.Context,
	booking *models.Booking,
	payable models.PayableAmount,
	reference string,
	charge *ChargeResult,
	cause error,
) error {
	metrics.IncReconciliationFailure()
	metrics.IncPaymentResult("reconciliation_required")

	s.logger.WithError(cause).WithFields(logrus.Fields{
		"alert":             true,
		"booking_id":        booking.ID,
		"user_id":           booking.UserID,
		"gateway_reference": reference,
		"transaction_id":    charge.TransactionID,
		"gateway_amount":    payable.GatewayPayable.StringFixed(moneyPlaces),
		"wallet_amount":     payable.WalletApplied.StringFixed(moneyPlaces),
	}).Error("RECONCILIATION REQUIRED: gateway charged but booking confirmation failed")

	var flagged *models.Booking
	flagErr := s.store.WithTx(ctx, func(tx database.Tx) error {
		audit := models.NewPaymentAudit(models.PaymentEventReconciliationRequired, booking.ID, reference).
			SetAmounts(payable.GatewayPayable, payable.WalletApplied).
			SetTransactionID(charge.TransactionID).
			SetError(cause)
		audit.CreatedAt = s.clock()
		if err := tx.PaymentAudits().Log(ctx, audit); err != nil {
			return err
		}

		b, err := tx.Bookings().GetForUpdate(ctx, booking.ID)
		if err != nil {
			return err
		}
		b.NeedsReview = true
		b.GatewayReference = &reference
		b.UpdatedAt = s.clock()
		if err := tx.Bookings().Update(ctx, b); err != nil {
			return err
		}
		flagged = b
		return nil
	})
	if flagErr == nil {
		s.events.Dispatch(notify.EventBookingNeedsReview, flagged)
	} else {
		s.logger.WithError(flagErr).WithFields(logrus.Fields{
			"alert":             true,
			"booking_id":        booking.ID,
			"gateway_reference": reference,
		}).Error("Failed to persist reconciliation case")
	}

	return models.NewSettlementError(models.KindReconciliationFailure, models.ErrReconciliationFailure.Message, cause)
}

// recordChargeFailure writes a best-effort audit entry for a declined charge
func (s *BookingOrchestratorService) recordChargeFailure(ctx context.Context, booking *models.Booking, payable models.PayableAmount, reference string, cause error) {
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		audit := models.NewPaymentAudit(models.PaymentEventChargeFailed, booking.ID, reference).
			SetAmounts(payable.GatewayPayable, payable.WalletApplied).
			SetError(cause)
		audit.CreatedAt = s.clock()
		return tx.PaymentAudits().Log(ctx, audit)
	})
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Error("Failed to log charge failure")
	}
}

// ============================================================================
// CANCEL & EXPIRE
// ============================================================================

// Cancel moves the booking to CANCELLED, returns its rooms and quotes the
// refund from the policy snapshot taken at creation. Confirmed bookings can
// only be cancelled before check-in.
func (s *BookingOrchestratorService) Cancel(ctx context.Context, userID, bookingID uuid.UUID) (*models.RefundQuote, error) {
	var (
		quote     *models.RefundQuote
		cancelled *models.Booking
	)

	err := withRetry(ctx, s.config.Retry, func() error {
		return s.store.WithTx(ctx, func(tx database.Tx) error {
			b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
			if err != nil {
				return err
			}
			if b.UserID != userID {
				return models.ErrForbidden
			}

			now := s.clock()
			previous := b.Status
			if !previous.CanTransitionTo(models.BookingStatusCancelled) {
				return models.NewSettlementError(models.KindInvalidTransition,
					fmt.Sprintf("cannot cancel a %s booking", previous), nil)
			}
			if previous == models.BookingStatusConfirmed && !now.Before(b.CheckIn) {
				return models.NewSettlementError(models.KindInvalidTransition, "cannot cancel after check-in", nil)
			}

			freed, err := s.inventory.Release(ctx, tx, b, now)
			if err != nil {
				return err
			}

			percentage := decimal.Zero
			refund := decimal.Zero
			if b.AmountPaid.IsPositive() {
				percentage = b.CancellationPolicy.RefundPercentageAt(b.CheckIn, now)
				refund = b.AmountPaid.Mul(percentage).Div(hundred).Round(moneyPlaces)
			}

			if err := b.Transition(models.BookingStatusCancelled, now); err != nil {
				return err
			}
			if err := tx.Bookings().Update(ctx, b); err != nil {
				return err
			}

			quote = &models.RefundQuote{
				BookingID:        b.ID,
				PreviousStatus:   previous,
				AmountPaid:       b.AmountPaid,
				RefundPercentage: percentage,
				RefundAmount:     refund,
				InventoryFreed:   freed,
			}
			cancelled = b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.IncBookingTransition(string(models.BookingStatusCancelled))
	s.logger.WithFields(logrus.Fields{
		"booking_id":      bookingID,
		"previous_status": quote.PreviousStatus,
		"refund_amount":   quote.RefundAmount.StringFixed(moneyPlaces),
	}).Info("Booking cancelled")
	s.events.Dispatch(notify.EventBookingCancelled, cancelled)

	return quote, nil
}

// ExpireBooking moves a lapsed RESERVED/PENDING_PAYMENT booking to EXPIRED
// and releases its rooms. It reports false when there was nothing to expire,
// which makes concurrent or repeated sweeps harmless.
func (s *BookingOrchestratorService) ExpireBooking(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var expired *models.Booking

	err := withRetry(ctx, s.config.Retry, func() error {
		expired = nil
		return s.store.WithTx(ctx, func(tx database.Tx) error {
			b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
			if err != nil {
				return err
			}

			now := s.clock()
			if b.Status != models.BookingStatusReserved && b.Status != models.BookingStatusPendingPayment {
				return nil
			}
			if !b.IsExpired(now) {
				return nil
			}

			if _, err := s.inventory.Release(ctx, tx, b, now); err != nil {
				return err
			}
			if err := b.Transition(models.BookingStatusExpired, now); err != nil {
				return err
			}
			if err := tx.Bookings().Update(ctx, b); err != nil {
				return err
			}
			expired = b
			return nil
		})
	})
	if err != nil {
		return false, err
	}
	if expired == nil {
		return false, nil
	}

	metrics.IncBookingTransition(string(models.BookingStatusExpired))
	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"expires_at": expired.ExpiresAt,
	}).Info("Reservation expired")
	s.events.Dispatch(notify.EventBookingExpired, expired)

	return true, nil
}

func (s *BookingOrchestratorService) expireQuietly(ctx context.Context, bookingID uuid.UUID) {
	if _, err := s.ExpireBooking(ctx, bookingID); err != nil {
		s.logger.WithError(err).WithField("booking_id", bookingID).Warn("Failed to expire lapsed booking")
	}
}

// ============================================================================
// QUERIES
// ============================================================================

// GetBooking returns the caller's booking
func (s *BookingOrchestratorService) GetBooking(ctx context.Context, userID, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.store.Bookings().GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, models.ErrForbidden
	}
	return booking, nil
}

// Payable returns what confirm_payment would charge for walletAmount
func (s *BookingOrchestratorService) Payable(ctx context.Context, userID, bookingID uuid.UUID, walletAmount decimal.Decimal) (models.PayableAmount, error) {
	booking, err := s.GetBooking(ctx, userID, bookingID)
	if err != nil {
		return models.PayableAmount{}, err
	}
	return s.pricing.Payable(booking, walletAmount)
}

// HoldDuration exposes the reservation window
func (s *BookingOrchestratorService) HoldDuration() time.Duration {
	return s.inventory.HoldDuration()
}

func underReview() error {
	return models.NewSettlementError(models.KindReconciliationFailure, models.ErrReconciliationFailure.Message, nil)
}
