package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"pkt.systems/pslog"

	"github.com/ltdat/flashstock/internal/core/domain"
	"github.com/ltdat/flashstock/internal/lock"
	"github.com/ltdat/flashstock/internal/metrics"
	"github.com/ltdat/flashstock/internal/port"
)

const lockKeyPrefix = "lock:stock:"

// compensateTimeout bounds the rollback of admitted stock after a failed
// reservation. Compensation runs detached from the request context so a
// canceled request still gives its units back.
const compensateTimeout = 5 * time.Second

func lockKey(productID int64) string {
	return fmt.Sprintf("%s%d", lockKeyPrefix, productID)
}

// ReserveService admits purchases through the cached stock counters, persists
// them durably, and rolls the counters back when persistence fails. One
// StockStore per lock node; decrements replay on every node the lease was
// granted on.
type ReserveService struct {
	nodes        []port.StockStore
	locker       lock.Locker
	quorum       int
	db           port.DatabaseRepository
	reconciler   *Reconciler
	logger       pslog.Logger
	metrics      *metrics.Metrics
	retry        RetryConfig
	lockTTL      time.Duration
	safetyMargin time.Duration
	breaker      *gobreaker.CircuitBreaker[struct{}]

	// now is swappable so deadline behavior is testable.
	now func() time.Time
}

type ReserveServiceConfig struct {
	Nodes        []port.StockStore
	Locker       lock.Locker
	Quorum       int
	DB           port.DatabaseRepository
	Reconciler   *Reconciler
	Logger       pslog.Logger
	Metrics      *metrics.Metrics
	Retry        RetryConfig
	LockTTL      time.Duration
	SafetyMargin time.Duration
}

func NewReserveService(cfg ReserveServiceConfig) *ReserveService {
	if cfg.Logger == nil {
		cfg.Logger = pslog.NoopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(nil)
	}
	if cfg.Quorum == 0 {
		cfg.Quorum = len(cfg.Nodes)/2 + 1
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = 10 * time.Second
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "purchase-db",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &ReserveService{
		nodes:        cfg.Nodes,
		locker:       cfg.Locker,
		quorum:       cfg.Quorum,
		db:           cfg.DB,
		reconciler:   cfg.Reconciler,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		retry:        cfg.Retry,
		lockTTL:      cfg.LockTTL,
		safetyMargin: cfg.SafetyMargin,
		breaker:      breaker,
		now:          time.Now,
	}
}

// Reserve admits one purchase of quantity units of productID for userID. On
// success the purchase is durably recorded and the reservation reports the
// remaining cached stock.
func (s *ReserveService) Reserve(ctx context.Context, userID string, productID int64, quantity int64) (*domain.Reservation, error) {
	start := s.now()
	reservation, err := s.reserve(ctx, userID, productID, quantity)
	s.observe(start, err)
	return reservation, err
}

func (s *ReserveService) observe(start time.Time, err error) {
	s.metrics.ReserveDuration.Observe(s.now().Sub(start).Seconds())
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientStock):
		outcome = "insufficient"
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrBusy):
		outcome = "busy"
	case errors.Is(err, ErrInconsistent):
		outcome = "inconsistent"
	case errors.Is(err, ErrUnavailable):
		outcome = "unavailable"
	default:
		outcome = "error"
	}
	s.metrics.Reservations.WithLabelValues(outcome).Inc()
}

func (s *ReserveService) reserve(ctx context.Context, userID string, productID int64, quantity int64) (*domain.Reservation, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("reserve: quantity must be positive, got %d", quantity)
	}

	product, err := s.db.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("reserve: %w", ErrUnavailable)
	}
	if product == nil {
		return nil, ErrNotFound
	}

	lease, err := s.acquireWithRetry(ctx, lockKey(productID))
	if err != nil {
		return nil, err
	}
	lockedAt := s.now()
	defer func() {
		s.metrics.LockHoldDuration.Observe(s.now().Sub(lockedAt).Seconds())
		s.release(lease)
	}()

	remaining, err := s.decrementQuorum(ctx, lease, productID, quantity)
	if err != nil {
		return nil, err
	}

	// Past this point the units are admitted. Every failure path must give
	// them back.
	if s.now().After(s.workDeadline(lease)) {
		s.compensate(lease.Granted, productID, quantity)
		s.logger.Warn("reserve.lock_expired", "product_id", productID, "user_id", userID)
		return nil, fmt.Errorf("%w: %w", ErrBusy, errLockLost)
	}

	purchase := domain.Purchase{
		ID:          uuid.NewString(),
		UserID:      userID,
		ProductID:   productID,
		Quantity:    quantity,
		TotalPrice:  product.Price * quantity,
		PurchasedAt: s.now(),
	}

	if err := s.persist(ctx, lease, purchase); err != nil {
		s.compensate(lease.Granted, productID, quantity)
		return nil, err
	}

	s.logger.Info("reserve.granted",
		"purchase_id", purchase.ID,
		"user_id", userID,
		"product_id", productID,
		"quantity", quantity,
		"remaining", remaining,
	)

	return &domain.Reservation{
		PurchaseID: purchase.ID,
		UserID:     userID,
		ProductID:  productID,
		Quantity:   quantity,
		TotalPrice: purchase.TotalPrice,
		Remaining:  remaining,
	}, nil
}

// ReserveBundle admits all items or none. Locks are taken in ascending
// product ID order so two overlapping bundles can never deadlock.
func (s *ReserveService) ReserveBundle(ctx context.Context, userID string, items []domain.BundleItem) ([]domain.Reservation, error) {
	start := s.now()
	reservations, err := s.reserveBundle(ctx, userID, items)
	s.observe(start, err)
	return reservations, err
}

func (s *ReserveService) reserveBundle(ctx context.Context, userID string, items []domain.BundleItem) ([]domain.Reservation, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("reserve bundle: empty bundle")
	}
	merged, err := mergeBundle(items)
	if err != nil {
		return nil, err
	}

	products := make(map[int64]*domain.Product, len(merged))
	for _, item := range merged {
		product, err := s.db.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("reserve bundle: %w", ErrUnavailable)
		}
		if product == nil {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, ErrNotFound)
		}
		products[item.ProductID] = product
	}

	leases := make([]*lock.Lease, 0, len(merged))
	releaseAll := func() {
		for i := len(leases) - 1; i >= 0; i-- {
			s.release(leases[i])
		}
	}

	for _, item := range merged {
		lease, err := s.acquireWithRetry(ctx, lockKey(item.ProductID))
		if err != nil {
			releaseAll()
			return nil, err
		}
		leases = append(leases, lease)
	}
	defer releaseAll()

	// Admit item by item; a refusal returns everything admitted so far.
	type admitted struct {
		item      domain.BundleItem
		lease     *lock.Lease
		remaining int64
	}
	var done []admitted
	rollback := func() {
		for _, a := range done {
			s.compensate(a.lease.Granted, a.item.ProductID, a.item.Quantity)
		}
	}

	for i, item := range merged {
		lease := leases[i]
		if s.now().After(s.workDeadline(lease)) {
			rollback()
			return nil, fmt.Errorf("%w: %w", ErrBusy, errLockLost)
		}
		remaining, err := s.decrementQuorum(ctx, lease, item.ProductID, item.Quantity)
		if err != nil {
			rollback()
			return nil, err
		}
		done = append(done, admitted{item: item, lease: lease, remaining: remaining})
	}

	purchases := make([]domain.Purchase, 0, len(done))
	purchasedAt := s.now()
	for _, a := range done {
		purchases = append(purchases, domain.Purchase{
			ID:          uuid.NewString(),
			UserID:      userID,
			ProductID:   a.item.ProductID,
			Quantity:    a.item.Quantity,
			TotalPrice:  products[a.item.ProductID].Price * a.item.Quantity,
			PurchasedAt: purchasedAt,
		})
	}

	if err := s.persistBundle(ctx, purchases); err != nil {
		rollback()
		return nil, err
	}

	reservations := make([]domain.Reservation, len(done))
	for i, a := range done {
		reservations[i] = domain.Reservation{
			PurchaseID: purchases[i].ID,
			UserID:     userID,
			ProductID:  a.item.ProductID,
			Quantity:   a.item.Quantity,
			TotalPrice: purchases[i].TotalPrice,
			Remaining:  a.remaining,
		}
	}

	s.logger.Info("reserve.bundle_granted", "user_id", userID, "items", len(reservations))
	return reservations, nil
}

// mergeBundle collapses duplicate product lines and orders the bundle by
// ascending product ID, which is also the lock acquisition order.
func mergeBundle(items []domain.BundleItem) ([]domain.BundleItem, error) {
	byProduct := make(map[int64]int64, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("reserve bundle: quantity must be positive, got %d", item.Quantity)
		}
		byProduct[item.ProductID] += item.Quantity
	}

	merged := make([]domain.BundleItem, 0, len(byProduct))
	for id, qty := range byProduct {
		merged = append(merged, domain.BundleItem{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged, nil
}

func (s *ReserveService) acquireWithRetry(ctx context.Context, name string) (*lock.Lease, error) {
	for attempt := 0; ; attempt++ {
		lease, err := s.locker.Acquire(ctx, name, s.lockTTL)
		if err == nil {
			s.metrics.LockAcquisitions.WithLabelValues("granted").Inc()
			return lease, nil
		}
		if errors.Is(err, lock.ErrNodesUnavailable) {
			s.metrics.LockAcquisitions.WithLabelValues("unavailable").Inc()
			return nil, fmt.Errorf("acquire %s: %w", name, ErrUnavailable)
		}
		if !errors.Is(err, lock.ErrLockHeld) {
			s.metrics.LockAcquisitions.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("acquire %s: %w", name, err)
		}
		if attempt >= s.retry.MaxRetries {
			s.metrics.LockAcquisitions.WithLabelValues("busy").Inc()
			return nil, fmt.Errorf("acquire %s: %w", name, ErrBusy)
		}
		s.metrics.LockRetries.Inc()
		if err := sleepCtx(ctx, s.retry.backoffDelay(attempt)); err != nil {
			return nil, fmt.Errorf("acquire %s: %w", name, err)
		}
	}
}

func (s *ReserveService) workDeadline(lease *lock.Lease) time.Time {
	return lease.Deadline().Add(-s.safetyMargin)
}

// decrementQuorum replays the guarded decrement on every granted node and
// classifies the combined result. Nodes that disagree get compensated or
// flagged for reconciliation so no unit is silently lost.
func (s *ReserveService) decrementQuorum(ctx context.Context, lease *lock.Lease, productID, quantity int64) (int64, error) {
	type result struct {
		node    int
		outcome domain.DecrementOutcome
		rem     int64
		err     error
	}
	results := make([]result, len(lease.Granted))

	var wg sync.WaitGroup
	for i, node := range lease.Granted {
		wg.Add(1)
		go func(i, node int) {
			defer wg.Done()
			res, err := s.nodes[node].TryDecrement(ctx, productID, quantity)
			results[i] = result{node: node, outcome: res.Outcome, rem: res.Remaining, err: err}
		}(i, node)
	}
	wg.Wait()

	var okNodes []int
	var okCount, insufficient, missing, failed int
	remaining := int64(-1)
	for _, r := range results {
		if r.err != nil {
			failed++
			continue
		}
		switch r.outcome {
		case domain.DecrementOK:
			okCount++
			okNodes = append(okNodes, r.node)
			if remaining < 0 || r.rem < remaining {
				remaining = r.rem
			}
		case domain.DecrementInsufficient:
			insufficient++
		case domain.DecrementMissing:
			missing++
		}
	}

	switch {
	case okCount >= s.quorum:
		if okCount < len(lease.Granted) {
			// A minority refused or errored; their counters have drifted.
			s.requestReconcile(productID, "decrement minority disagreed")
		}
		return remaining, nil
	case insufficient >= s.quorum:
		s.compensate(okNodes, productID, quantity)
		if failed > 0 {
			// An errored RPC may still have applied its decrement.
			s.requestReconcile(productID, "decrement outcome unknown on some nodes")
		}
		return 0, fmt.Errorf("product %d: %w", productID, ErrInsufficientStock)
	case missing >= s.quorum:
		s.compensate(okNodes, productID, quantity)
		if failed > 0 {
			s.requestReconcile(productID, "decrement outcome unknown on some nodes")
		}
		return 0, fmt.Errorf("product %d stock not seeded: %w", productID, ErrNotFound)
	default:
		s.compensate(okNodes, productID, quantity)
		s.requestReconcile(productID, "decrement split below quorum")
		s.logger.Warn("reserve.decrement_split",
			"product_id", productID,
			"ok", okCount, "insufficient", insufficient, "missing", missing,
			"granted", len(lease.Granted),
		)
		return 0, fmt.Errorf("product %d: %w", productID, ErrInconsistent)
	}
}

func (s *ReserveService) persist(ctx context.Context, lease *lock.Lease, purchase domain.Purchase) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.db.RecordPurchase(ctx, purchase)
	})
	return s.classifyPersistErr(err, purchase.ProductID)
}

func (s *ReserveService) persistBundle(ctx context.Context, purchases []domain.Purchase) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.db.RecordPurchases(ctx, purchases)
	})
	if err == nil {
		return nil
	}
	for _, p := range purchases {
		if err2 := s.classifyPersistErr(err, p.ProductID); errors.Is(err2, ErrInconsistent) {
			return err2
		}
	}
	return s.classifyPersistErr(err, purchases[0].ProductID)
}

func (s *ReserveService) classifyPersistErr(err error, productID int64) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, port.ErrStockConflict):
		// Cache admitted more than the durable counter holds.
		s.requestReconcile(productID, "durable stock conflict")
		return fmt.Errorf("product %d: %w", productID, ErrInconsistent)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("persist purchase: %w", ErrUnavailable)
	default:
		s.logger.Error("reserve.persist_failed", "product_id", productID, "error", err)
		return fmt.Errorf("persist purchase: %w", ErrUnavailable)
	}
}

// compensate gives admitted units back on the listed nodes. It runs detached
// from the request context; a node that cannot take the units back is handed
// to the reconciler instead.
func (s *ReserveService) compensate(nodes []int, productID, quantity int64) {
	if len(nodes) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), compensateTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, node := range nodes {
		wg.Add(1)
		go func(node int) {
			defer wg.Done()
			var applied bool
			var err error
			for attempt := 0; attempt < 2; attempt++ {
				applied, err = s.nodes[node].Compensate(ctx, productID, quantity)
				if err == nil {
					break
				}
			}
			if err != nil || !applied {
				s.logger.Warn("reserve.compensate_failed",
					"product_id", productID, "node", node, "applied", applied, "error", err)
				s.requestReconcile(productID, "compensation failed")
			}
		}(node)
	}
	wg.Wait()
}

func (s *ReserveService) requestReconcile(productID int64, reason string) {
	if s.reconciler == nil {
		return
	}
	s.reconciler.Notify(productID, reason)
}

func (s *ReserveService) release(lease *lock.Lease) {
	ctx, cancel := context.WithTimeout(context.Background(), compensateTimeout)
	defer cancel()
	if err := s.locker.Release(ctx, lease); err != nil {
		s.logger.Warn("reserve.release_failed", "lock", lease.Name, "error", err)
	}
}
