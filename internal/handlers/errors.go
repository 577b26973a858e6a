package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/models"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

var kindStatus = map[models.ErrorKind]int{
	models.KindValidation:            http.StatusBadRequest,
	models.KindInsufficientBalance:   http.StatusPaymentRequired,
	models.KindForbidden:             http.StatusForbidden,
	models.KindNotFound:              http.StatusNotFound,
	models.KindInventoryUnavailable:  http.StatusConflict,
	models.KindInvalidTransition:     http.StatusConflict,
	models.KindLockContended:         http.StatusConflict,
	models.KindReservationExpired:    http.StatusGone,
	models.KindInvalidPromo:          http.StatusUnprocessableEntity,
	models.KindPaymentFailure:        http.StatusBadGateway,
	models.KindReconciliationFailure: http.StatusAccepted,
	models.KindPricingNotFrozen:      http.StatusInternalServerError,
}

// statusFor maps an error to its HTTP status
func statusFor(err error) int {
	if status, ok := kindStatus[models.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError writes the JSON error body for err.
// Unknown errors never leak their message to the client.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status := statusFor(err)
	kind := models.KindOf(err)

	var se *models.SettlementError
	if !errors.As(err, &se) || status == http.StatusInternalServerError {
		logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong, please try again",
			Code:    string(kind),
		})
		return
	}

	body := ErrorResponse{
		Error:   string(se.Kind),
		Message: se.Message,
	}
	if se.Kind == models.KindReconciliationFailure {
		// The guest sees a pending state, never the failure cause
		body.Message = models.ErrReconciliationFailure.Message
		body.Code = "PAYMENT_UNDER_REVIEW"
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   string(models.KindValidation),
		Message: message,
	})
}
