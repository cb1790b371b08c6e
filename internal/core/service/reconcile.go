package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pkt.systems/pslog"

	"github.com/ltdat/flashstock/internal/lock"
	"github.com/ltdat/flashstock/internal/metrics"
	"github.com/ltdat/flashstock/internal/port"
)

const reconcileQueueSize = 256

type reconcileRequest struct {
	productID int64
	reason    string
}

// Reconciler realigns drifted cache counters with the durable stock. Requests
// arrive from the reservation path whenever nodes disagree or compensation
// fails; each request is also published so external systems can audit drift.
type Reconciler struct {
	nodes     []port.StockStore
	locker    lock.Locker
	db        port.DatabaseRepository
	publisher port.EventPublisher
	logger    pslog.Logger
	metrics   *metrics.Metrics
	lockTTL   time.Duration
	queue     chan reconcileRequest
}

func NewReconciler(
	nodes []port.StockStore,
	locker lock.Locker,
	db port.DatabaseRepository,
	publisher port.EventPublisher,
	logger pslog.Logger,
	m *metrics.Metrics,
	lockTTL time.Duration,
) *Reconciler {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if lockTTL == 0 {
		lockTTL = 10 * time.Second
	}
	return &Reconciler{
		nodes:     nodes,
		locker:    locker,
		db:        db,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		lockTTL:   lockTTL,
		queue:     make(chan reconcileRequest, reconcileQueueSize),
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, port.ReconciliationEvent) error { return nil }

// Notify queues a reconciliation for productID. It never blocks the caller;
// a full queue drops the request, which is safe because the next drift on the
// same product queues it again.
func (r *Reconciler) Notify(productID int64, reason string) {
	r.metrics.ReconcileEvents.Inc()
	select {
	case r.queue <- reconcileRequest{productID: productID, reason: reason}:
	default:
		r.logger.Warn("reconcile.queue_full", "product_id", productID, "reason", reason)
	}
}

// Run drains the queue until ctx is canceled.
func (r *Reconciler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-r.queue:
			r.handle(ctx, req)
		}
	}
}

func (r *Reconciler) handle(ctx context.Context, req reconcileRequest) {
	event := port.ReconciliationEvent{
		ProductID: req.productID,
		Reason:    req.reason,
		At:        time.Now().UTC(),
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("reconcile.publish_failed", "product_id", req.productID, "error", err)
	}

	if err := r.Reconcile(ctx, req.productID); err != nil {
		r.logger.Warn("reconcile.failed",
			"product_id", req.productID, "reason", req.reason, "error", err)
		return
	}
	r.logger.Info("reconcile.done", "product_id", req.productID, "reason", req.reason)
}

// Reconcile forces every node's counter to the durable stock value. It takes
// the product lock so no reservation is admitted against a counter that is
// being rewritten.
func (r *Reconciler) Reconcile(ctx context.Context, productID int64) error {
	lease, err := r.locker.Acquire(ctx, lockKey(productID), r.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLockHeld) {
			return fmt.Errorf("reconcile %d: %w", productID, ErrBusy)
		}
		return fmt.Errorf("reconcile %d: %w", productID, err)
	}
	defer r.locker.Release(context.WithoutCancel(ctx), lease)

	stock, err := r.db.GetStock(ctx, productID)
	if err != nil {
		return fmt.Errorf("reconcile %d: read durable stock: %w", productID, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(r.nodes))
	for i, node := range r.nodes {
		wg.Add(1)
		go func(i int, node port.StockStore) {
			defer wg.Done()
			errs[i] = node.ForceSetStock(ctx, productID, stock)
		}(i, node)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("reconcile %d: node %d: %w", productID, i, err)
		}
	}
	return nil
}
