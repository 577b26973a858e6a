package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventChargeRequested        PaymentEventType = "charge_requested"
	PaymentEventChargeSucceeded        PaymentEventType = "charge_succeeded"
	PaymentEventChargeFailed           PaymentEventType = "charge_failed"
	PaymentEventBookingConfirmed       PaymentEventType = "booking_confirmed"
	PaymentEventReconciliationRequired PaymentEventType = "reconciliation_required"
)

// PaymentAuditStatus tracks operator handling of an audit entry
type PaymentAuditStatus string

const (
	PaymentAuditRecorded PaymentAuditStatus = "recorded"
	PaymentAuditOpen     PaymentAuditStatus = "open" // needs manual review
)

// PaymentAudit is an immutable log entry for a payment event.
// Entries of type reconciliation_required are the operator's review queue.
type PaymentAudit struct {
	ID               uuid.UUID          `json:"id" db:"id"`
	BookingID        uuid.UUID          `json:"booking_id" db:"booking_id"`
	GatewayReference string             `json:"gateway_reference" db:"gateway_reference"`
	EventType        PaymentEventType   `json:"event_type" db:"event_type"`
	Status           PaymentAuditStatus `json:"status" db:"status"`
	GatewayAmount    decimal.Decimal    `json:"gateway_amount" db:"gateway_amount"`
	WalletAmount     decimal.Decimal    `json:"wallet_amount" db:"wallet_amount"`
	TransactionID    *string            `json:"transaction_id,omitempty" db:"transaction_id"`
	ErrorMessage     *string            `json:"error_message,omitempty" db:"error_message"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, bookingID uuid.UUID, reference string) *PaymentAudit {
	status := PaymentAuditRecorded
	if eventType == PaymentEventReconciliationRequired {
		status = PaymentAuditOpen
	}
	return &PaymentAudit{
		ID:               uuid.New(),
		BookingID:        bookingID,
		GatewayReference: reference,
		EventType:        eventType,
		Status:           status,
		CreatedAt:        time.Now(),
	}
}

// SetAmounts records the split between gateway and wallet
func (pa *PaymentAudit) SetAmounts(gateway, wallet decimal.Decimal) *PaymentAudit {
	pa.GatewayAmount = gateway
	pa.WalletAmount = wallet
	return pa
}

// SetTransactionID sets the gateway transaction id
func (pa *PaymentAudit) SetTransactionID(id string) *PaymentAudit {
	if id != "" {
		pa.TransactionID = &id
	}
	return pa
}

// SetError sets error information
func (pa *PaymentAudit) SetError(err error) *PaymentAudit {
	if err != nil {
		msg := err.Error()
		pa.ErrorMessage = &msg
	}
	return pa
}
