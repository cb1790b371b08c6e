package port

import (
	"context"

	"github.com/ltdat/flashstock/internal/core/domain"
)

// StockStore is the per-node admission counter. In quorum mode the service
// holds one StockStore per Redis node and replays every mutation on each
// granted node; in single-node mode it holds exactly one.
type StockStore interface {
	// TryDecrement atomically subtracts quantity from the counter. The
	// counter never goes below zero: insufficient stock leaves it untouched.
	TryDecrement(ctx context.Context, productID int64, quantity int64) (domain.DecrementResult, error)

	// Compensate adds quantity back after a failed reservation. A missing
	// counter is left missing and reported via applied == false.
	Compensate(ctx context.Context, productID int64, quantity int64) (applied bool, err error)

	// SeedStock creates the counter only if it does not exist yet. Returns
	// false when a counter was already present.
	SeedStock(ctx context.Context, productID int64, quantity int64) (bool, error)

	// ForceSetStock overwrites the counter unconditionally. Reserved for
	// reconciliation and tests.
	ForceSetStock(ctx context.Context, productID int64, quantity int64) error

	// GetStock reads the counter. ok is false when the counter is missing.
	GetStock(ctx context.Context, productID int64) (stock int64, ok bool, err error)
}
