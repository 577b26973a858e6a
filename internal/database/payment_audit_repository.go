package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/staybook/settlement-backend/internal/models"
)

// PaymentAuditRepo handles payment audit operations
type PaymentAuditRepo struct {
	db sqlx.ExtContext
}

// NewPaymentAuditRepo creates a new payment audit repository
func NewPaymentAuditRepo(db sqlx.ExtContext) *PaymentAuditRepo {
	return &PaymentAuditRepo{db: db}
}

// Log creates a new payment audit entry.
// Payment events must never be dropped, so a failure here is always returned.
func (r *PaymentAuditRepo) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, booking_id, gateway_reference, event_type, status,
			gateway_amount, wallet_amount, transaction_id, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.BookingID, audit.GatewayReference, audit.EventType, audit.Status,
		audit.GatewayAmount, audit.WalletAmount, audit.TransactionID, audit.ErrorMessage, audit.CreatedAt,
	)
	if err != nil {
		return translateError(err, "failed to log payment audit")
	}
	return nil
}
