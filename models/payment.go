package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCreditCard PaymentMethod = "CREDIT_CARD"
	MethodDebitCard  PaymentMethod = "DEBIT_CARD"
	MethodPayPal     PaymentMethod = "PAYPAL"
	MethodWallet     PaymentMethod = "WALLET"
	MethodCash       PaymentMethod = "CASH"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// RefundWindow is how long after a completed payment a refund may still be
// requested.
const RefundWindow = 30 * 24 * time.Hour

type Payment struct {
	ID             string          `json:"id"`
	OrderID        string          `json:"order_id,omitempty"`
	SubscriptionID string          `json:"subscription_id,omitempty"`
	UserID         string          `json:"user_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         PaymentMethod   `json:"payment_method"`
	TransactionID  string          `json:"transaction_id,omitempty"`
	Status         PaymentStatus   `json:"status"`
	PaymentDate    *time.Time      `json:"payment_date,omitempty"`
	Currency       string          `json:"currency"`
	// ProviderResponse keeps the raw decline reason for audit.
	ProviderResponse string    `json:"provider_response,omitempty"`
	Refunds          []*Refund `json:"refunds,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (p *Payment) CanBeRefunded() bool {
	return p.Status == PaymentCompleted &&
		p.PaymentDate != nil &&
		time.Now().Before(p.PaymentDate.Add(RefundWindow))
}

func (p *Payment) MarkAsCompleted(transactionID string, now time.Time) {
	p.Status = PaymentCompleted
	p.TransactionID = transactionID
	p.PaymentDate = &now
}

func (p *Payment) MarkAsFailed(reason string) {
	p.Status = PaymentFailed
	p.ProviderResponse = reason
}

func (p *Payment) MarkAsRefunded() {
	p.Status = PaymentRefunded
}

// TotalRefundedAmount sums the completed refunds against this payment.
func (p *Payment) TotalRefundedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.Refunds {
		if r.Status == RefundCompleted {
			total = total.Add(r.RefundAmount)
		}
	}
	return total
}

// RemainingRefundable is how much money can still be clawed back.
func (p *Payment) RemainingRefundable() decimal.Decimal {
	return p.Amount.Sub(p.TotalRefundedAmount())
}

func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case MethodCreditCard, MethodDebitCard, MethodPayPal, MethodWallet, MethodCash:
		return true
	}
	return false
}
