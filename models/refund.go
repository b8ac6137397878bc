package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RefundStatus string

const (
	RefundPending    RefundStatus = "PENDING"
	RefundProcessing RefundStatus = "PROCESSING"
	RefundCompleted  RefundStatus = "COMPLETED"
	RefundFailed     RefundStatus = "FAILED"
)

type Refund struct {
	ID           string          `json:"id"`
	PaymentID    string          `json:"payment_id"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	RefundReason string          `json:"refund_reason,omitempty"`
	Status       RefundStatus    `json:"status"`
	TransactionID string         `json:"transaction_id,omitempty"`
	IsPartial    bool            `json:"is_partial"`
	RefundDate   *time.Time      `json:"refund_date,omitempty"`
	ProcessedBy  string          `json:"processed_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (r *Refund) MarkAsProcessing() {
	r.Status = RefundProcessing
}

func (r *Refund) MarkAsCompleted(transactionID string, now time.Time) {
	r.Status = RefundCompleted
	r.TransactionID = transactionID
	r.RefundDate = &now
}

// MarkAsFailed appends the reason instead of overwriting so retry history
// survives repeated provider failures.
func (r *Refund) MarkAsFailed(reason string) {
	r.Status = RefundFailed
	if r.RefundReason != "" {
		r.RefundReason += " | " + reason
	} else {
		r.RefundReason = reason
	}
}

func (r *Refund) IsPending() bool {
	return r.Status == RefundPending
}

func (r *Refund) IsCompleted() bool {
	return r.Status == RefundCompleted
}
