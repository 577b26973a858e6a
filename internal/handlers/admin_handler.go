package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/middleware"
)

// Sweeper runs one expiry sweep on demand
type Sweeper interface {
	RunSweepNow(ctx context.Context) (int, error)
}

// Expirer expires a single lapsed booking
type Expirer interface {
	ExpireBooking(ctx context.Context, bookingID uuid.UUID) (bool, error)
}

// AdminHandler exposes operator endpoints
type AdminHandler struct {
	sweeper Sweeper
	expirer Expirer
	logger  *logrus.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(sweeper Sweeper, expirer Expirer, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{sweeper: sweeper, expirer: expirer, logger: logger}
}

// Sweep handles POST /api/v1/admin/sweep
func (h *AdminHandler) Sweep(c *gin.Context) {
	expired, err := h.sweeper.RunSweepNow(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	userCtx, _ := middleware.GetUserContext(c)
	h.logger.WithFields(logrus.Fields{
		"operator_id": userCtx.UserID,
		"expired":     expired,
	}).Info("Manual reservation sweep")

	c.JSON(http.StatusOK, gin.H{"expired": expired})
}

// ExpireBooking handles POST /api/v1/admin/bookings/:id/expire
func (h *AdminHandler) ExpireBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid booking id")
		return
	}

	expired, err := h.expirer.ExpireBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"booking_id": bookingID,
		"expired":    expired,
	})
}
