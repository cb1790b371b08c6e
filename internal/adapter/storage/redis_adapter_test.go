package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ltdat/flashstock/internal/core/domain"
)

func newTestAdapter(t *testing.T) (*RedisAdapter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisAdapter(client), mr
}

func TestTryDecrement_Success(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	if _, err := adapter.SeedStock(ctx, 1, 10); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := adapter.TryDecrement(ctx, 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != domain.DecrementOK {
		t.Errorf("expected ok, got %s", res.Outcome)
	}
	if res.Remaining != 7 {
		t.Errorf("expected remaining 7, got %d", res.Remaining)
	}
}

func TestTryDecrement_Insufficient(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	if _, err := adapter.SeedStock(ctx, 1, 5); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := adapter.TryDecrement(ctx, 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != domain.DecrementInsufficient {
		t.Errorf("expected insufficient, got %s", res.Outcome)
	}

	// Counter must be untouched after a refused decrement.
	stock, ok, err := adapter.GetStock(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("get stock: ok=%v err=%v", ok, err)
	}
	if stock != 5 {
		t.Errorf("expected stock 5, got %d", stock)
	}
}

func TestTryDecrement_ExactStock(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	if _, err := adapter.SeedStock(ctx, 1, 4); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := adapter.TryDecrement(ctx, 1, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != domain.DecrementOK || res.Remaining != 0 {
		t.Errorf("expected ok/0, got %s/%d", res.Outcome, res.Remaining)
	}
}

func TestTryDecrement_Missing(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	res, err := adapter.TryDecrement(context.Background(), 999, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != domain.DecrementMissing {
		t.Errorf("expected missing, got %s", res.Outcome)
	}
}

func TestTryDecrement_Concurrent(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	initialStock := int64(20)
	totalRequests := 50

	if _, err := adapter.SeedStock(ctx, 7, initialStock); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := adapter.TryDecrement(ctx, 7, 1)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if res.Outcome == domain.DecrementOK {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}

	stock, ok, _ := adapter.GetStock(ctx, 7)
	if !ok || stock != 0 {
		t.Errorf("expected stock 0, got %d (ok=%v)", stock, ok)
	}
}

func TestCompensate(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	if _, err := adapter.SeedStock(ctx, 1, 5); err != nil {
		t.Fatalf("seed: %v", err)
	}

	applied, err := adapter.Compensate(ctx, 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Error("expected compensation to apply")
	}

	stock, _, _ := adapter.GetStock(ctx, 1)
	if stock != 8 {
		t.Errorf("expected stock 8, got %d", stock)
	}
}

func TestCompensate_MissingCounter(t *testing.T) {
	adapter, mr := newTestAdapter(t)
	ctx := context.Background()

	applied, err := adapter.Compensate(ctx, 42, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Error("expected no-op on missing counter")
	}
	if mr.Exists("stock:42") {
		t.Error("compensation must not recreate a missing counter")
	}
}

func TestSeedStock_AlreadySeeded(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	created, err := adapter.SeedStock(ctx, 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected first seed to create the counter")
	}

	created, err = adapter.SeedStock(ctx, 1, 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected second seed to be refused")
	}

	stock, _, _ := adapter.GetStock(ctx, 1)
	if stock != 10 {
		t.Errorf("expected original stock 10, got %d", stock)
	}
}

func TestForceSetStock(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	if _, err := adapter.SeedStock(ctx, 1, 10); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := adapter.ForceSetStock(ctx, 1, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stock, ok, _ := adapter.GetStock(ctx, 1)
	if !ok || stock != 3 {
		t.Errorf("expected stock 3, got %d (ok=%v)", stock, ok)
	}
}

func TestGetStock_Missing(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	_, ok, err := adapter.GetStock(context.Background(), 404)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing counter")
	}
}
