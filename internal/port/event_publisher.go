package port

import (
	"context"
	"time"
)

// ReconciliationEvent asks an external reconciler to align the cached stock
// of one product with the durable counter.
type ReconciliationEvent struct {
	ProductID int64     `json:"product_id"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event ReconciliationEvent) error
}
