package status

import "errors"

var (
	// Lookup failures. Always safe to surface as a 404.
	ErrOrderNotFound   = errors.New("order: order not found")
	ErrTicketNotFound  = errors.New("ticket: ticket not found")
	ErrPaymentNotFound = errors.New("payment: payment not found")
	ErrRefundNotFound  = errors.New("refund: refund not found")

	// Operation not legal in the aggregate's current state.
	ErrInvalidState     = errors.New("state: operation not allowed in current state")
	ErrPaymentExists    = errors.New("payment: payment already exists for this order")
	ErrAmountMismatch   = errors.New("payment: amount does not match order total")
	ErrNotRefundable    = errors.New("refund: payment cannot be refunded")
	ErrExceedsRemaining = errors.New("refund: amount exceeds remaining payment amount")

	// Malformed input, rejected before any state mutation.
	ErrValidation = errors.New("validation: invalid input")

	// External provider declined or errored. Retryable in principle,
	// unlike the state errors above.
	ErrPaymentFailed = errors.New("payment: payment processing failed")
	ErrRefundFailed  = errors.New("refund: refund processing failed")

	// Unknown or malformed QR code. Deliberately a single error for both
	// cases so the validation endpoint never reveals which one it was.
	ErrInvalidTicket = errors.New("ticket: invalid ticket code")

	ErrLockContended = errors.New("lock: resource is locked by another operation")
)
