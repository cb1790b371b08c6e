package service

import "errors"

var (
	// ErrNotFound covers unknown products and counters that were never
	// seeded.
	ErrNotFound = errors.New("product not found")

	// ErrInsufficientStock means the counter refused the decrement. The
	// product is sold out for this quantity.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrBusy means the lock stayed contended through every retry. The
	// caller may try again later.
	ErrBusy = errors.New("stock lock busy")

	// ErrInconsistent means the replicated counters disagreed and the
	// reservation was aborted. Reconciliation has been requested.
	ErrInconsistent = errors.New("stock counters inconsistent")

	// ErrUnavailable means a backing system could not be reached.
	ErrUnavailable = errors.New("reservation backend unavailable")

	// errLockLost marks work that outlived its lease validity. Internal to
	// the reservation path, surfaced to callers as ErrBusy.
	errLockLost = errors.New("lock validity expired")
)
