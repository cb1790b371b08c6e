package domain

import "time"

type Product struct {
	ID           int64
	Name         string
	Description  string
	Price        int64
	Stock        int64 // durable counter, ground truth for units sold
	InitialStock int64
	CreatedAt    time.Time
}

// ProductStock pairs a product with both stock views so callers can see
// whether the admission cache has drifted from the durable counter.
type ProductStock struct {
	Product    Product
	CacheStock int64
	Synced     bool
}
