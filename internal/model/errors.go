package model

import "errors"

var (
	// ErrValidation is returned when an order fails its construction invariants.
	ErrValidation = errors.New("order validation failed")

	// ErrIllegalTransition is returned when a status change is not an edge
	// of the order state machine.
	ErrIllegalTransition = errors.New("illegal order status transition")

	// ErrCancellationWindow is returned when a cancel arrives more than
	// CancellationWindow after the order was created.
	ErrCancellationWindow = errors.New("cancellation window exceeded")
)
