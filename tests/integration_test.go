package tests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pkt.systems/pslog"

	"github.com/ltdat/flashstock/internal/adapter/storage"
	"github.com/ltdat/flashstock/internal/core/domain"
	"github.com/ltdat/flashstock/internal/core/service"
	"github.com/ltdat/flashstock/internal/lock"
	"github.com/ltdat/flashstock/internal/port"
)

type testEnv struct {
	redis  *redis.Client
	mysql  *sql.DB
	stores []port.StockStore
	db     *storage.MySQLAdapter
	locker lock.Locker
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/flashstock?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	sqlDB, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	t.Cleanup(func() {
		rdb.Close()
		sqlDB.Close()
	})

	return &testEnv{
		redis:  rdb,
		mysql:  sqlDB,
		stores: []port.StockStore{storage.NewRedisAdapter(rdb)},
		db:     storage.NewMySQLAdapter(sqlDB),
		locker: lock.NewSingleLock(rdb),
	}
}

func (env *testEnv) newService(t *testing.T) (*service.ReserveService, *service.ProductService) {
	t.Helper()
	logger := pslog.NoopLogger()

	reconciler := service.NewReconciler(env.stores, env.locker, env.db, nil, logger, nil, 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go reconciler.Run(ctx)

	svc := service.NewReserveService(service.ReserveServiceConfig{
		Nodes:      env.stores,
		Locker:     env.locker,
		DB:         env.db,
		Reconciler: reconciler,
		Logger:     logger,
		Retry:      service.RetryConfig{MaxRetries: 100, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond},
		LockTTL:    5 * time.Second,
	})
	return svc, service.NewProductService(env.db, env.stores, logger)
}

func (env *testEnv) createProduct(t *testing.T, products *service.ProductService, stock int64) int64 {
	t.Helper()
	ctx := context.Background()

	product, err := products.CreateProduct(ctx, fmt.Sprintf("it-%s-%d", t.Name(), time.Now().UnixNano()), "integration", 1500, stock)
	require.NoError(t, err)

	t.Cleanup(func() {
		env.redis.Del(ctx, fmt.Sprintf("stock:%d", product.ID))
		env.mysql.ExecContext(ctx, `DELETE FROM purchases WHERE product_id = ?`, product.ID)
		env.mysql.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, product.ID)
	})
	return product.ID
}

func TestIntegration_ExactStockUnderContention(t *testing.T) {
	env := setupTestEnv(t)
	svc, products := env.newService(t)

	ctx := context.Background()
	const initialStock = 10
	const totalRequests = 25
	productID := env.createProduct(t, products, initialStock)

	var granted, soldOut atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			_, err := svc.Reserve(ctx, fmt.Sprintf("user-%d", userID), productID, 1)
			switch {
			case err == nil:
				granted.Add(1)
			case errors.Is(err, service.ErrInsufficientStock):
				soldOut.Add(1)
			default:
				t.Errorf("unexpected reserve error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(initialStock), granted.Load())
	assert.Equal(t, int32(totalRequests-initialStock), soldOut.Load())

	cacheStock, ok, err := env.stores[0].GetStock(ctx, productID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(0), cacheStock)

	durableStock, err := env.db.GetStock(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), durableStock)

	var purchaseCount int
	require.NoError(t, env.mysql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchases WHERE product_id = ?`, productID).Scan(&purchaseCount))
	assert.Equal(t, initialStock, purchaseCount)
}

func TestIntegration_ReservationSurvivesRestartSeed(t *testing.T) {
	env := setupTestEnv(t)
	svc, products := env.newService(t)

	ctx := context.Background()
	productID := env.createProduct(t, products, 5)

	_, err := svc.Reserve(ctx, "user-restart", productID, 2)
	require.NoError(t, err)

	// A cold start repopulates counters from the durable store. SETNX
	// semantics keep the live counter, so re-seeding must not resurrect
	// the two units already sold.
	require.NoError(t, products.SeedStock(ctx, productID))

	cacheStock, ok, err := env.stores[0].GetStock(ctx, productID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3), cacheStock)

	env.redis.Del(ctx, fmt.Sprintf("stock:%d", productID))
	require.NoError(t, products.SeedStock(ctx, productID))

	cacheStock, _, err = env.stores[0].GetStock(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cacheStock, "fresh seed should load the durable remainder")
}

func TestIntegration_BundleAllOrNothing(t *testing.T) {
	env := setupTestEnv(t)
	svc, products := env.newService(t)

	ctx := context.Background()
	richID := env.createProduct(t, products, 10)
	poorID := env.createProduct(t, products, 1)

	_, err := svc.Reserve(ctx, "user-drain", poorID, 1)
	require.NoError(t, err)

	_, err = svc.ReserveBundle(ctx, "user-bundle", []domain.BundleItem{
		{ProductID: richID, Quantity: 2},
		{ProductID: poorID, Quantity: 1},
	})
	require.ErrorIs(t, err, service.ErrInsufficientStock)

	cacheStock, _, err := env.stores[0].GetStock(ctx, richID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), cacheStock, "failed bundle must not consume sibling stock")

	durableStock, err := env.db.GetStock(ctx, richID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), durableStock)
}

func TestIntegration_ReconcilerRepairsDrift(t *testing.T) {
	env := setupTestEnv(t)
	_, products := env.newService(t)

	ctx := context.Background()
	productID := env.createProduct(t, products, 8)

	// Force drift: cache says 2, durable truth says 8.
	require.NoError(t, env.stores[0].ForceSetStock(ctx, productID, 2))

	logger := pslog.NoopLogger()
	reconciler := service.NewReconciler(env.stores, env.locker, env.db, nil, logger, nil, 5*time.Second)
	require.NoError(t, reconciler.Reconcile(ctx, productID))

	cacheStock, ok, err := env.stores[0].GetStock(ctx, productID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(8), cacheStock)
}
