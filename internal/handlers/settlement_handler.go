package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/middleware"
	"github.com/staybook/settlement-backend/internal/models"
	"github.com/staybook/settlement-backend/internal/services"
)

// SettlementHandler exposes the booking lifecycle over HTTP
type SettlementHandler struct {
	orchestrator *services.BookingOrchestratorService
	logger       *logrus.Logger
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(orchestrator *services.BookingOrchestratorService, logger *logrus.Logger) *SettlementHandler {
	return &SettlementHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// ============================================================================
// PREVIEW - POST /api/v1/pricing/preview
// ============================================================================

// PreviewPrice computes live pricing; nothing is stored
func (h *SettlementHandler) PreviewPrice(c *gin.Context) {
	var req models.PreviewPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	breakdown, err := h.orchestrator.PreviewPrice(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, breakdown)
}

// ============================================================================
// CREATE & RESERVE - POST /api/v1/bookings
// ============================================================================

// CreateBooking creates a booking and holds its rooms
func (h *SettlementHandler) CreateBooking(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	booking, err := h.orchestrator.CreateAndReserve(c.Request.Context(), userCtx.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"booking":               booking,
		"hold_duration_seconds": int(h.orchestrator.HoldDuration().Seconds()),
	})
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *SettlementHandler) GetBooking(c *gin.Context) {
	userCtx, bookingID, ok := userAndBooking(c)
	if !ok {
		return
	}

	booking, err := h.orchestrator.GetBooking(c.Request.Context(), userCtx.UserID, bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ============================================================================
// LOCK PRICE - POST /api/v1/bookings/:id/lock-price
// ============================================================================

// LockPrice freezes pricing and moves the booking to PENDING_PAYMENT
func (h *SettlementHandler) LockPrice(c *gin.Context) {
	userCtx, bookingID, ok := userAndBooking(c)
	if !ok {
		return
	}

	resp, err := h.orchestrator.LockPrice(c.Request.Context(), userCtx.UserID, bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ApplyPromo handles POST /api/v1/bookings/:id/promo
func (h *SettlementHandler) ApplyPromo(c *gin.Context) {
	userCtx, bookingID, ok := userAndBooking(c)
	if !ok {
		return
	}

	var req models.ApplyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	resp, err := h.orchestrator.ApplyPromo(c.Request.Context(), userCtx.UserID, bookingID, req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPayable handles GET /api/v1/bookings/:id/payable?wallet_amount=
func (h *SettlementHandler) GetPayable(c *gin.Context) {
	userCtx, bookingID, ok := userAndBooking(c)
	if !ok {
		return
	}

	walletAmount := decimal.Zero
	if raw := c.Query("wallet_amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			badRequest(c, "invalid wallet_amount")
			return
		}
		walletAmount = amount
	}

	payable, err := h.orchestrator.Payable(c.Request.Context(), userCtx.UserID, bookingID, walletAmount)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, payable)
}

// ============================================================================
// CONFIRM PAYMENT - POST /api/v1/bookings/:id/pay
// ============================================================================

// ConfirmPayment charges the gateway and confirms the booking.
// A reconciliation failure answers 202 with a pending message.
func (h *SettlementHandler) ConfirmPayment(c *gin.Context) {
	userCtx, bookingID, ok := userAndBooking(c)
	if !ok {
		return
	}

	var req models.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.WalletAmount.IsNegative() {
		badRequest(c, "wallet_amount cannot be negative")
		return
	}

	booking, err := h.orchestrator.ConfirmPayment(c.Request.Context(), userCtx.UserID, bookingID, req.WalletAmount, req.GatewayReference)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (h *SettlementHandler) CancelBooking(c *gin.Context) {
	userCtx, bookingID, ok := userAndBooking(c)
	if !ok {
		return
	}

	quote, err := h.orchestrator.Cancel(c.Request.Context(), userCtx.UserID, bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

func requireUser(c *gin.Context) (middleware.UserContext, bool) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "user not authenticated",
		})
		return middleware.UserContext{}, false
	}
	return userCtx, true
}

func userAndBooking(c *gin.Context) (middleware.UserContext, uuid.UUID, bool) {
	userCtx, ok := requireUser(c)
	if !ok {
		return userCtx, uuid.Nil, false
	}
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid booking id")
		return userCtx, uuid.Nil, false
	}
	return userCtx, bookingID, true
}
