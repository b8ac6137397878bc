package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketType string

const (
	TicketSingle    TicketType = "SINGLE"
	TicketReturn    TicketType = "RETURN"
	TicketDayPass   TicketType = "DAY_PASS"
	TicketMultiRide TicketType = "MULTI_RIDE"
)

type TicketStatus string

const (
	// TicketPendingPayment marks tickets on an order that has not been
	// paid yet. They never validate at a turnstile.
	TicketPendingPayment TicketStatus = "PENDING_PAYMENT"
	TicketActive         TicketStatus = "ACTIVE"
	TicketUsed           TicketStatus = "USED"
	TicketCancelled      TicketStatus = "CANCELLED"
	TicketExpired        TicketStatus = "EXPIRED"
)

// MaxUsageUnlimited is the usage cap for pass-style tickets. Large enough
// that no ride count ever reaches it.
const MaxUsageUnlimited = 1<<31 - 1

// CancellationCutoff is how long before validFrom a ticket stops being
// cancellable, to prevent last-minute refund abuse.
const CancellationCutoff = 2 * time.Hour

type Ticket struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	Type          TicketType      `json:"ticket_type"`
	Price         decimal.Decimal `json:"price"`
	PurchaseDate  *time.Time      `json:"purchase_date,omitempty"`
	ValidFrom     time.Time       `json:"valid_from"`
	ValidUntil    time.Time       `json:"valid_until"`
	Status        TicketStatus    `json:"status"`
	UsageCount    int             `json:"usage_count"`
	MaxUsage      int             `json:"max_usage"`
	RouteID       string          `json:"route_id"`
	ScheduleID    string          `json:"schedule_id,omitempty"`
	QRCode        string          `json:"qr_code"`
	PassengerName string          `json:"passenger_name,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (t *Ticket) IsValid() bool {
	return t.Status == TicketActive &&
		time.Now().Before(t.ValidUntil) &&
		t.UsageCount < t.MaxUsage
}

// Use consumes one ride. The caller must hold the per-ticket lock and run
// inside a transaction so concurrent validations cannot both cross the cap.
func (t *Ticket) Use() error {
	if !t.IsValid() {
		return ErrTicketNotUsable
	}
	t.UsageCount++
	if t.UsageCount >= t.MaxUsage {
		t.Status = TicketUsed
	}
	return nil
}

func (t *Ticket) Cancel() error {
	if t.Status == TicketUsed {
		return ErrTicketUsed
	}
	t.Status = TicketCancelled
	return nil
}

func (t *Ticket) CanBeCancelled() bool {
	return t.Status == TicketActive &&
		t.UsageCount == 0 &&
		time.Now().Before(t.ValidFrom.Add(-CancellationCutoff))
}

// Activate flips a provisional ticket to usable once its order is paid.
func (t *Ticket) Activate(now time.Time) {
	t.Status = TicketActive
	t.PurchaseDate = &now
}

// DefaultMaxUsage returns the ride cap for a ticket type when the buyer
// does not override it.
func DefaultMaxUsage(tt TicketType) int {
	switch tt {
	case TicketReturn:
		return 2
	case TicketDayPass:
		return MaxUsageUnlimited
	case TicketMultiRide:
		return 10
	default:
		return 1
	}
}

// DefaultValidityWindow returns how long a ticket stays valid past
// validFrom when the buyer supplies no explicit dates.
func DefaultValidityWindow(tt TicketType) time.Duration {
	switch tt {
	case TicketReturn:
		return 12 * time.Hour
	case TicketDayPass:
		return 24 * time.Hour
	case TicketMultiRide:
		return 30 * 24 * time.Hour
	default:
		return 2 * time.Hour
	}
}

func ValidTicketType(tt TicketType) bool {
	switch tt {
	case TicketSingle, TicketReturn, TicketDayPass, TicketMultiRide:
		return true
	}
	return false
}
