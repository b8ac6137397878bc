package provider

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"bus-ticketing/models"
)

func TestSimulatedAttemptPayment(t *testing.T) {
	sim := NewSimulated()
	ctx := context.Background()
	amount := decimal.RequireFromString("7.00")

	tests := []struct {
		name    string
		req     *PaymentRequest
		wantErr string
	}{
		{
			name: "Valid credit card",
			req: &PaymentRequest{
				Method: models.MethodCreditCard, Amount: amount,
				CardNumber: "4111111111111111", CardHolderName: "Jordan Lee",
				ExpiryDate: "12/27", CVV: "123",
			},
		},
		{
			name: "Card number too short",
			req: &PaymentRequest{
				Method: models.MethodDebitCard, Amount: amount,
				CardNumber: "4111", CardHolderName: "Jordan Lee",
				ExpiryDate: "12/27", CVV: "123",
			},
			wantErr: "invalid card number",
		},
		{
			name: "Card number with letters",
			req: &PaymentRequest{
				Method: models.MethodCreditCard, Amount: amount,
				CardNumber: "41111111111111ab", CardHolderName: "Jordan Lee",
				ExpiryDate: "12/27", CVV: "123",
			},
			wantErr: "invalid card number",
		},
		{
			name: "Missing cvv",
			req: &PaymentRequest{
				Method: models.MethodCreditCard, Amount: amount,
				CardNumber: "4111111111111111", CardHolderName: "Jordan Lee",
				ExpiryDate: "12/27",
			},
			wantErr: "missing card holder, expiry or cvv",
		},
		{
			name: "Valid paypal",
			req: &PaymentRequest{
				Method: models.MethodPayPal, Amount: amount,
				PayPalEmail: "rider@example.com",
			},
		},
		{
			name: "Malformed paypal email",
			req: &PaymentRequest{
				Method: models.MethodPayPal, Amount: amount,
				PayPalEmail: "not-an-email",
			},
			wantErr: "malformed paypal email",
		},
		{
			name: "Missing paypal email",
			req:  &PaymentRequest{Method: models.MethodPayPal, Amount: amount},
			wantErr: "missing paypal email",
		},
		{
			name: "Wallet always settles",
			req:  &PaymentRequest{Method: models.MethodWallet, Amount: amount},
		},
		{
			name: "Cash always settles",
			req:  &PaymentRequest{Method: models.MethodCash, Amount: amount},
		},
		{
			name:    "Unknown method",
			req:     &PaymentRequest{Method: "CRYPTO", Amount: amount},
			wantErr: "unsupported payment method",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sim.AttemptPayment(ctx, tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestSimulatedAttemptRefund(t *testing.T) {
	sim := NewSimulated()
	ctx := context.Background()

	err := sim.AttemptRefund(ctx, &RefundRequest{
		TransactionID: "TXN-ABC",
		Amount:        decimal.RequireFromString("2.50"),
	})
	assert.NoError(t, err)

	err = sim.AttemptRefund(ctx, &RefundRequest{
		Amount: decimal.RequireFromString("2.50"),
	})
	assert.EqualError(t, err, "missing original transaction id")

	err = sim.AttemptRefund(ctx, &RefundRequest{
		TransactionID: "TXN-ABC",
		Amount:        decimal.Zero,
	})
	assert.EqualError(t, err, "refund amount must be positive")
}
