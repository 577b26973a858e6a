package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/models"
	"github.com/staybook/settlement-backend/internal/services"
)

const defaultTransactionLimit = 20

// WalletHandler serves the guest's wallet and operator credits
type WalletHandler struct {
	wallets *services.WalletService
	logger  *logrus.Logger
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(wallets *services.WalletService, logger *logrus.Logger) *WalletHandler {
	return &WalletHandler{wallets: wallets, logger: logger}
}

// GetWallet handles GET /api/v1/wallet
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userCtx, ok := requireUser(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultTransactionLimit)))
	if err != nil || limit <= 0 || limit > 100 {
		limit = defaultTransactionLimit
	}

	wallet, err := h.wallets.GetWallet(c.Request.Context(), userCtx.UserID, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, wallet)
}

// Credit handles POST /api/v1/admin/wallets/:user_id/credit. Guests have
// no way to add funds to their own wallet.
func (h *WalletHandler) Credit(c *gin.Context) {
	operator, ok := requireUser(c)
	if !ok {
		return
	}

	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		badRequest(c, "invalid user id")
		return
	}

	var req models.WalletCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	if !req.Amount.IsPositive() {
		badRequest(c, "amount must be positive")
		return
	}
	description := req.Description
	if description == "" {
		description = "Wallet credit"
	}

	txn, err := h.wallets.TopUp(c.Request.Context(), userID, req.Amount, description)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"operator_id": operator.UserID,
		"user_id":     userID,
		"amount":      req.Amount.StringFixed(2),
	}).Info("Wallet credited by operator")

	c.JSON(http.StatusCreated, txn)
}
