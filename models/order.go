package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderRefunded  OrderStatus = "REFUNDED"
)

// Order groups the tickets bought together and is the binding point
// between entitlements issued and money collected. TotalAmount is locked
// at creation time and never recomputed.
type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	OrderNumber string          `json:"order_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      OrderStatus     `json:"status"`
	Tickets     []*Ticket       `json:"tickets,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// MarkAsPaid flips the order and activates every ticket on it. Called only
// by the payment workflow on a successful charge.
func (o *Order) MarkAsPaid(now time.Time) {
	o.Status = OrderPaid
	for _, t := range o.Tickets {
		t.Activate(now)
	}
}

// Cancel rejects paid orders (the money has to come back through a refund)
// and cancels every ticket that has not been used.
func (o *Order) Cancel() error {
	if o.Status == OrderPaid {
		return ErrOrderPaid
	}
	o.Status = OrderCancelled
	for _, t := range o.Tickets {
		if t.Status != TicketUsed {
			t.Status = TicketCancelled
		}
	}
	return nil
}
