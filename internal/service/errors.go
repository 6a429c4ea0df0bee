package service

import "errors"

var (
	// ErrOrderNotFound is returned when an order cannot be found.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidRequest is returned when request data is invalid or incomplete.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrOptimisticConflict is returned when a concurrent writer changed the
	// order between load and save. Callers may retry.
	ErrOptimisticConflict = errors.New("order was modified concurrently")
)
