package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/staybook/settlement-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatewayConfig(endpoint string) *config.PaymentConfig {
	return &config.PaymentConfig{
		Environment:   "sandbox",
		Endpoint:      endpoint,
		MerchantKey:   "merchant-key",
		MerchantToken: "merchant-token",
		Timeout:       2 * time.Second,
	}
}

func TestHTTPChargeGateway_Charge(t *testing.T) {
	var received chargeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		if received.InvoiceID == "ref-declined" {
			w.Write([]byte(`{"status":"error","message":"card declined"}`))
			return
		}
		w.Write([]byte(`{"status":"success","transactionId":"txn-42"}`))
	}))
	defer server.Close()

	gateway := NewHTTPChargeGateway(gatewayConfig(server.URL), "INR", testLogger())

	t.Run("Success", func(t *testing.T) {
		result, err := gateway.Charge(context.Background(), decimal.RequireFromString("12660"), "ref-1")
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "txn-42", result.TransactionID)

		assert.Equal(t, "merchant-key", received.MerchantKey)
		assert.Equal(t, "12660.00", received.Amount)
		assert.Equal(t, "INR", received.CurrencyCode)
		assert.Equal(t, gateway.GenerateCheckValue("ref-1", "12660.00", "INR"), received.CheckValue)
	})

	t.Run("Declined", func(t *testing.T) {
		result, err := gateway.Charge(context.Background(), decimal.NewFromInt(100), "ref-declined")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "card declined", result.Message)
	})
}

func TestHTTPChargeGateway_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	gateway := NewHTTPChargeGateway(gatewayConfig(server.URL), "INR", testLogger())
	result, err := gateway.Charge(context.Background(), decimal.NewFromInt(100), "ref-1")
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPChargeGateway_MissingCredentials(t *testing.T) {
	cfg := gatewayConfig("http://127.0.0.1:1")
	cfg.MerchantToken = ""

	gateway := NewHTTPChargeGateway(cfg, "INR", testLogger())
	_, err := gateway.Charge(context.Background(), decimal.NewFromInt(100), "ref-1")
	assert.Error(t, err)
}

func TestGenerateCheckValue(t *testing.T) {
	gateway := NewHTTPChargeGateway(gatewayConfig(""), "INR", testLogger())

	first := gateway.GenerateCheckValue("ref-1", "100.00", "INR")
	assert.Len(t, first, 128)
	assert.Equal(t, strings.ToUpper(first), first)
	assert.Equal(t, first, gateway.GenerateCheckValue("ref-1", "100.00", "INR"))
	assert.NotEqual(t, first, gateway.GenerateCheckValue("ref-1", "100.01", "INR"))
}

func TestNewChargeGateway(t *testing.T) {
	placeholder := NewChargeGateway(&config.PaymentConfig{Environment: "placeholder"}, "INR", testLogger())
	require.IsType(t, &PlaceholderGateway{}, placeholder)

	result, err := placeholder.Charge(context.Background(), decimal.NewFromInt(10), "ref-1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(result.TransactionID, "placeholder-"))

	assert.IsType(t, &HTTPChargeGateway{}, NewChargeGateway(gatewayConfig("http://example.invalid"), "INR", testLogger()))
}
