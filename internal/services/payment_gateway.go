package services

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/staybook/settlement-backend/internal/config"
)

// ChargeResult is the gateway's answer to a charge
type ChargeResult struct {
	Success       bool
	TransactionID string
	Message       string
}

// ChargeGateway is the opaque charge capability used by confirm_payment
type ChargeGateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, reference string) (*ChargeResult, error)
}

// HTTPChargeGateway charges through the payment provider's JSON API
type HTTPChargeGateway struct {
	config   *config.PaymentConfig
	currency string
	logger   *logrus.Logger
	client   *http.Client
}

// chargeRequest is the body sent to the provider.
// The merchant token is never sent; it only feeds the check value.
type chargeRequest struct {
	MerchantKey  string `json:"merchantKey"`
	InvoiceID    string `json:"invoiceId"`
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
	CheckValue   string `json:"checkValue"`
}

type chargeResponse struct {
	Status        string `json:"status"` // "success" or "error"
	TransactionID string `json:"transactionId"`
	Message       string `json:"message,omitempty"`
}

// NewHTTPChargeGateway creates a gateway client
func NewHTTPChargeGateway(cfg *config.PaymentConfig, currency string, logger *logrus.Logger) *HTTPChargeGateway {
	return &HTTPChargeGateway{
		config:   cfg,
		currency: currency,
		logger:   logger,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// GenerateCheckValue creates the SHA-512 check value
// Step 1: hash1 = SHA512(merchantToken) uppercase hex
// Step 2: SHA512("merchantKey|invoiceId|amount|currencyCode|hash1") uppercase hex
func (g *HTTPChargeGateway) GenerateCheckValue(invoiceID, amount, currencyCode string) string {
	hash1 := sha512.Sum512([]byte(g.config.MerchantToken))
	hash1Hex := strings.ToUpper(hex.EncodeToString(hash1[:]))

	data := fmt.Sprintf("%s|%s|%s|%s|%s",
		g.config.MerchantKey,
		invoiceID,
		amount,
		currencyCode,
		hash1Hex,
	)
	hash2 := sha512.Sum512([]byte(data))
	return strings.ToUpper(hex.EncodeToString(hash2[:]))
}

// Charge requests amount against reference. A declined charge is returned as
// a result with Success=false; err is reserved for transport problems.
func (g *HTTPChargeGateway) Charge(ctx context.Context, amount decimal.Decimal, reference string) (*ChargeResult, error) {
	if g.config.MerchantKey == "" || g.config.MerchantToken == "" {
		return nil, fmt.Errorf("payment gateway not configured: missing merchant credentials")
	}

	amountStr := amount.StringFixed(2)
	request := &chargeRequest{
		MerchantKey:  g.config.MerchantKey,
		InvoiceID:    reference,
		Amount:       amountStr,
		CurrencyCode: g.currency,
		CheckValue:   g.GenerateCheckValue(reference, amountStr, g.currency),
	}

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"gateway_reference": reference,
		"amount":            amountStr,
		"currency":          g.currency,
	}).Info("Charging payment gateway")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.Endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).Error("Failed to call payment gateway")
		return nil, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var chargeResp chargeResponse
	if err := json.Unmarshal(body, &chargeResp); err != nil {
		g.logger.WithFields(logrus.Fields{
			"body":  string(body),
			"error": err.Error(),
		}).Error("Failed to parse gateway response")
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	result := &ChargeResult{
		Success:       resp.StatusCode == http.StatusOK && strings.EqualFold(chargeResp.Status, "success"),
		TransactionID: chargeResp.TransactionID,
		Message:       chargeResp.Message,
	}
	if !result.Success && result.Message == "" {
		result.Message = fmt.Sprintf("status=%s, http=%d", chargeResp.Status, resp.StatusCode)
	}

	g.logger.WithFields(logrus.Fields{
		"gateway_reference": reference,
		"success":           result.Success,
		"transaction_id":    result.TransactionID,
	}).Info("Payment gateway responded")
	return result, nil
}

// PlaceholderGateway approves every charge. Used when no provider is configured.
type PlaceholderGateway struct {
	logger *logrus.Logger
}

// NewPlaceholderGateway creates an always-approving gateway
func NewPlaceholderGateway(logger *logrus.Logger) *PlaceholderGateway {
	return &PlaceholderGateway{logger: logger}
}

// Charge approves the charge with a generated transaction id
func (g *PlaceholderGateway) Charge(ctx context.Context, amount decimal.Decimal, reference string) (*ChargeResult, error) {
	g.logger.WithFields(logrus.Fields{
		"gateway_reference": reference,
		"amount":            amount.StringFixed(2),
	}).Warn("Placeholder payment gateway approving charge")
	return &ChargeResult{Success: true, TransactionID: "placeholder-" + uuid.NewString()}, nil
}

// NewChargeGateway picks the gateway for the configured environment
func NewChargeGateway(cfg *config.PaymentConfig, currency string, logger *logrus.Logger) ChargeGateway {
	if cfg.Environment == "placeholder" {
		return NewPlaceholderGateway(logger)
	}
	return NewHTTPChargeGateway(cfg, currency, logger)
}
