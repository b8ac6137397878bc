package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeTicket(maxUsage int) *Ticket {
	now := time.Now()
	return &Ticket{
		Type:       TicketSingle,
		Status:     TicketActive,
		ValidFrom:  now.Add(-time.Hour),
		ValidUntil: now.Add(time.Hour),
		MaxUsage:   maxUsage,
	}
}

func TestTicketIsValid(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Ticket)
		expected bool
	}{
		{"Active within window", func(tk *Ticket) {}, true},
		{"Pending payment", func(tk *Ticket) { tk.Status = TicketPendingPayment }, false},
		{"Cancelled", func(tk *Ticket) { tk.Status = TicketCancelled }, false},
		{"Expired status", func(tk *Ticket) { tk.Status = TicketExpired }, false},
		{"Past valid_until", func(tk *Ticket) { tk.ValidUntil = time.Now().Add(-time.Minute) }, false},
		{"Usage cap reached", func(tk *Ticket) { tk.UsageCount = tk.MaxUsage }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := activeTicket(1)
			tt.mutate(tk)
			assert.Equal(t, tt.expected, tk.IsValid())
		})
	}
}

func TestTicketUse(t *testing.T) {
	tk := activeTicket(2)

	require.NoError(t, tk.Use())
	assert.Equal(t, 1, tk.UsageCount)
	assert.Equal(t, TicketActive, tk.Status)

	require.NoError(t, tk.Use())
	assert.Equal(t, 2, tk.UsageCount)
	assert.Equal(t, TicketUsed, tk.Status)

	err := tk.Use()
	assert.ErrorIs(t, err, ErrTicketNotUsable)
	assert.Equal(t, 2, tk.UsageCount)
}

func TestTicketUseUnlimited(t *testing.T) {
	tk := activeTicket(MaxUsageUnlimited)
	for i := 0; i < 50; i++ {
		require.NoError(t, tk.Use())
	}
	assert.Equal(t, 50, tk.UsageCount)
	assert.Equal(t, TicketActive, tk.Status)
}

func TestTicketCancel(t *testing.T) {
	tk := activeTicket(1)
	require.NoError(t, tk.Cancel())
	assert.Equal(t, TicketCancelled, tk.Status)

	used := activeTicket(1)
	used.Status = TicketUsed
	assert.ErrorIs(t, used.Cancel(), ErrTicketUsed)
	assert.Equal(t, TicketUsed, used.Status)
}

func TestTicketCanBeCancelled(t *testing.T) {
	tk := activeTicket(1)
	tk.ValidFrom = time.Now().Add(3 * time.Hour)
	assert.True(t, tk.CanBeCancelled())

	// Inside the cutoff window.
	tk.ValidFrom = time.Now().Add(time.Hour)
	assert.False(t, tk.CanBeCancelled())

	tk.ValidFrom = time.Now().Add(3 * time.Hour)
	tk.UsageCount = 1
	assert.False(t, tk.CanBeCancelled())

	tk.UsageCount = 0
	tk.Status = TicketPendingPayment
	assert.False(t, tk.CanBeCancelled())
}

func TestDefaultMaxUsage(t *testing.T) {
	assert.Equal(t, 1, DefaultMaxUsage(TicketSingle))
	assert.Equal(t, 2, DefaultMaxUsage(TicketReturn))
	assert.Equal(t, MaxUsageUnlimited, DefaultMaxUsage(TicketDayPass))
	assert.Equal(t, 10, DefaultMaxUsage(TicketMultiRide))
}

func TestDefaultValidityWindow(t *testing.T) {
	assert.Equal(t, 2*time.Hour, DefaultValidityWindow(TicketSingle))
	assert.Equal(t, 12*time.Hour, DefaultValidityWindow(TicketReturn))
	assert.Equal(t, 24*time.Hour, DefaultValidityWindow(TicketDayPass))
	assert.Equal(t, 30*24*time.Hour, DefaultValidityWindow(TicketMultiRide))
}

func TestOrderMarkAsPaid(t *testing.T) {
	now := time.Now()
	order := &Order{
		Status: OrderPending,
		Tickets: []*Ticket{
			{Status: TicketPendingPayment},
			{Status: TicketPendingPayment},
		},
	}

	order.MarkAsPaid(now)

	assert.Equal(t, OrderPaid, order.Status)
	for _, tk := range order.Tickets {
		assert.Equal(t, TicketActive, tk.Status)
		require.NotNil(t, tk.PurchaseDate)
		assert.Equal(t, now, *tk.PurchaseDate)
	}
}

func TestOrderCancel(t *testing.T) {
	order := &Order{
		Status: OrderPending,
		Tickets: []*Ticket{
			{Status: TicketPendingPayment},
			{Status: TicketUsed},
		},
	}

	require.NoError(t, order.Cancel())
	assert.Equal(t, OrderCancelled, order.Status)
	assert.Equal(t, TicketCancelled, order.Tickets[0].Status)
	assert.Equal(t, TicketUsed, order.Tickets[1].Status)

	paid := &Order{Status: OrderPaid}
	assert.ErrorIs(t, paid.Cancel(), ErrOrderPaid)
	assert.Equal(t, OrderPaid, paid.Status)
}

func TestPaymentCanBeRefunded(t *testing.T) {
	now := time.Now()

	p := &Payment{Status: PaymentCompleted, PaymentDate: &now}
	assert.True(t, p.CanBeRefunded())

	pending := &Payment{Status: PaymentPending}
	assert.False(t, pending.CanBeRefunded())

	old := now.Add(-RefundWindow - time.Minute)
	stale := &Payment{Status: PaymentCompleted, PaymentDate: &old}
	assert.False(t, stale.CanBeRefunded())

	refunded := &Payment{Status: PaymentRefunded, PaymentDate: &now}
	assert.False(t, refunded.CanBeRefunded())
}

func TestPaymentRefundMath(t *testing.T) {
	p := &Payment{
		Amount: decimal.RequireFromString("10.00"),
		Refunds: []*Refund{
			{Status: RefundCompleted, RefundAmount: decimal.RequireFromString("4.00")},
			{Status: RefundFailed, RefundAmount: decimal.RequireFromString("3.00")},
			{Status: RefundCompleted, RefundAmount: decimal.RequireFromString("2.50")},
		},
	}

	assert.True(t, p.TotalRefundedAmount().Equal(decimal.RequireFromString("6.50")))
	assert.True(t, p.RemainingRefundable().Equal(decimal.RequireFromString("3.50")))
}

func TestRefundMarkAsFailedAccumulatesReasons(t *testing.T) {
	r := &Refund{RefundReason: "customer request"}

	r.MarkAsFailed("provider unavailable")
	assert.Equal(t, "customer request | provider unavailable", r.RefundReason)
	assert.Equal(t, RefundFailed, r.Status)

	r.MarkAsFailed("still unavailable")
	assert.Equal(t, "customer request | provider unavailable | still unavailable", r.RefundReason)
}

func TestRefundMarkAsCompleted(t *testing.T) {
	now := time.Now()
	r := &Refund{Status: RefundProcessing}
	r.MarkAsCompleted("REF-abc", now)

	assert.True(t, r.IsCompleted())
	assert.Equal(t, "REF-abc", r.TransactionID)
	require.NotNil(t, r.RefundDate)
	assert.Equal(t, now, *r.RefundDate)
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidTicketType(TicketDayPass))
	assert.False(t, ValidTicketType(TicketType("SEASON")))
	assert.True(t, ValidPaymentMethod(MethodWallet))
	assert.False(t, ValidPaymentMethod(PaymentMethod("CRYPTO")))
}
