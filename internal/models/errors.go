package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies settlement failures so callers can render a specific reason
type ErrorKind string

const (
	KindInventoryUnavailable  ErrorKind = "inventory_unavailable"
	KindReservationExpired    ErrorKind = "reservation_expired"
	KindInvalidPromo          ErrorKind = "invalid_promo"
	KindInsufficientBalance   ErrorKind = "insufficient_balance"
	KindPaymentFailure        ErrorKind = "payment_failure"
	KindReconciliationFailure ErrorKind = "reconciliation_failure"
	KindPricingNotFrozen      ErrorKind = "pricing_not_frozen"
	KindNotFound              ErrorKind = "not_found"
	KindInvalidTransition     ErrorKind = "invalid_transition"
	KindForbidden             ErrorKind = "forbidden"
	KindValidation            ErrorKind = "validation_error"
	KindLockContended         ErrorKind = "lock_contended"
)

// SettlementError is the typed error returned by the settlement engine
type SettlementError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *SettlementError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}

// Is matches on Kind only, so errors.Is(err, ErrInventoryUnavailable) holds for
// every InventoryUnavailable error regardless of its message.
func (e *SettlementError) Is(target error) bool {
	t, ok := target.(*SettlementError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinel errors, one per kind
var (
	ErrInventoryUnavailable  = &SettlementError{Kind: KindInventoryUnavailable, Message: "rooms are not available for the selected dates"}
	ErrReservationExpired    = &SettlementError{Kind: KindReservationExpired, Message: "reservation hold has expired"}
	ErrInvalidPromo          = &SettlementError{Kind: KindInvalidPromo, Message: "promo code is not applicable"}
	ErrInsufficientBalance   = &SettlementError{Kind: KindInsufficientBalance, Message: "wallet balance is insufficient"}
	ErrPaymentFailure        = &SettlementError{Kind: KindPaymentFailure, Message: "payment was declined"}
	ErrReconciliationFailure = &SettlementError{Kind: KindReconciliationFailure, Message: "we're verifying your payment"}
	ErrPricingNotFrozen      = &SettlementError{Kind: KindPricingNotFrozen, Message: "pricing not frozen"}
	ErrNotFound              = &SettlementError{Kind: KindNotFound, Message: "not found"}
	ErrInvalidTransition     = &SettlementError{Kind: KindInvalidTransition, Message: "invalid booking state transition"}
	ErrForbidden             = &SettlementError{Kind: KindForbidden, Message: "booking belongs to another user"}
	ErrValidation            = &SettlementError{Kind: KindValidation, Message: "invalid request"}
	ErrLockContended         = &SettlementError{Kind: KindLockContended, Message: "record is locked by another operation"}
)

// NewSettlementError builds a SettlementError of the given kind
func NewSettlementError(kind ErrorKind, message string, err error) *SettlementError {
	return &SettlementError{Kind: kind, Message: message, Err: err}
}

// NotFoundError reports a missing entity
func NotFoundError(entity string) *SettlementError {
	return NewSettlementError(KindNotFound, entity+" not found", nil)
}

// KindOf extracts the kind of a settlement error, or "" for any other error
func KindOf(err error) ErrorKind {
	var se *SettlementError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
