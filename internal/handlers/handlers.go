package handlers

import (
	"errors"

	"github.com/pocketbase/pocketbase/apis"

	"bus-ticketing/internal/status"
)

// apiError translates service errors into HTTP responses. Not-found and
// validation problems map to their usual codes; anything unrecognized is
// an internal error so provider internals never leak to clients.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrOrderNotFound),
		errors.Is(err, status.ErrTicketNotFound),
		errors.Is(err, status.ErrPaymentNotFound),
		errors.Is(err, status.ErrRefundNotFound):
		return apis.NewNotFoundError(err.Error(), nil)
	case errors.Is(err, status.ErrValidation),
		errors.Is(err, status.ErrAmountMismatch),
		errors.Is(err, status.ErrInvalidState),
		errors.Is(err, status.ErrPaymentExists),
		errors.Is(err, status.ErrNotRefundable),
		errors.Is(err, status.ErrExceedsRemaining):
		return apis.NewBadRequestError(err.Error(), nil)
	default:
		return apis.NewInternalServerError("internal error", err)
	}
}
