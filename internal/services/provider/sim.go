package provider

import (
	"context"
	"errors"
	"net/mail"
	"unicode"

	"bus-ticketing/models"
)

const minCardNumberLength = 13

// Simulated approves or declines locally using the same field checks a
// real gateway would reject on. Used in development and as the default
// provider.
type Simulated struct{}

func NewSimulated() *Simulated {
	return &Simulated{}
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) AttemptPayment(ctx context.Context, req *PaymentRequest) error {
	switch req.Method {
	case models.MethodCreditCard, models.MethodDebitCard:
		return validateCard(req)
	case models.MethodPayPal:
		return validatePayPal(req)
	case models.MethodWallet, models.MethodCash:
		// Settled out-of-band, nothing to decline.
		return nil
	default:
		return errors.New("unsupported payment method")
	}
}

func (s *Simulated) AttemptRefund(ctx context.Context, req *RefundRequest) error {
	if req.TransactionID == "" {
		return errors.New("missing original transaction id")
	}
	if !req.Amount.IsPositive() {
		return errors.New("refund amount must be positive")
	}
	return nil
}

func validateCard(req *PaymentRequest) error {
	if len(req.CardNumber) < minCardNumberLength || !allDigits(req.CardNumber) {
		return errors.New("invalid card number")
	}
	if req.CardHolderName == "" || req.ExpiryDate == "" || req.CVV == "" {
		return errors.New("missing card holder, expiry or cvv")
	}
	return nil
}

func validatePayPal(req *PaymentRequest) error {
	if req.PayPalEmail == "" {
		return errors.New("missing paypal email")
	}
	if _, err := mail.ParseAddress(req.PayPalEmail); err != nil {
		return errors.New("malformed paypal email")
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
