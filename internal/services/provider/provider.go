package provider

import (
	"context"

	"github.com/shopspring/decimal"

	"bus-ticketing/models"
)

// PaymentRequest carries everything a provider needs for a synchronous
// charge attempt. Method-specific fields are only inspected for the
// matching method.
type PaymentRequest struct {
	Amount    decimal.Decimal      `json:"amount"`
	Currency  string               `json:"currency"`
	Method    models.PaymentMethod `json:"method"`
	Reference string               `json:"reference"` // order number, for reconciliation

	// Card methods
	CardNumber     string `json:"card_number,omitempty"`
	CardHolderName string `json:"card_holder_name,omitempty"`
	ExpiryDate     string `json:"expiry_date,omitempty"`
	CVV            string `json:"cvv,omitempty"`

	// PayPal
	PayPalEmail string `json:"paypal_email,omitempty"`
}

type RefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Currency string        `json:"currency"`
	// TransactionID of the original charge being reversed.
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason,omitempty"`
}

// Provider is the external money-movement capability. A nil return means
// the provider accepted the attempt; any error is a decline or transport
// failure. At-most-once: callers never retry a dispatched attempt, and a
// timeout counts as failure.
type Provider interface {
	Name() string
	AttemptPayment(ctx context.Context, req *PaymentRequest) error
	AttemptRefund(ctx context.Context, req *RefundRequest) error
}
