package models

import "errors"

// State-machine violations. Services wrap these into the transport-facing
// taxonomy in internal/status.
var (
	ErrTicketNotUsable = errors.New("ticket is not valid for use")
	ErrTicketUsed      = errors.New("cannot cancel used ticket")
	ErrOrderPaid       = errors.New("cannot cancel paid order, request a refund instead")
)
