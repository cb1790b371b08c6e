package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"pkt.systems/pslog"

	"github.com/ltdat/flashstock/internal/adapter/storage"
	"github.com/ltdat/flashstock/internal/core/service"
	"github.com/ltdat/flashstock/internal/lock"
	"github.com/ltdat/flashstock/internal/port"
)

func main() {
	var (
		redisAddr     = flag.String("redis", "localhost:6379", "redis address")
		mysqlDSN      = flag.String("mysql", "root:root@tcp(localhost:3306)/flashstock?parseTime=true", "mysql dsn")
		initialStock  = flag.Int64("stock", 20, "stock to seed")
		totalRequests = flag.Int("requests", 50, "concurrent purchase attempts")
	)
	flag.Parse()

	ctx := context.Background()
	logger := pslog.NoopLogger()

	rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()

	sqlDB, err := sql.Open("mysql", *mysqlDSN)
	if err != nil {
		log.Fatalf("open mysql: %v", err)
	}
	defer sqlDB.Close()
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Fatalf("ping mysql: %v", err)
	}

	stores := []port.StockStore{storage.NewRedisAdapter(rdb)}
	db := storage.NewMySQLAdapter(sqlDB)
	locker := lock.NewSingleLock(rdb)

	products := service.NewProductService(db, stores, logger)
	product, err := products.CreateProduct(ctx, "stress-test-item", "stress run", 1999, *initialStock)
	if err != nil {
		log.Fatalf("create product: %v", err)
	}

	reconciler := service.NewReconciler(stores, locker, db, nil, logger, nil, 10*time.Second)
	reconcileCtx, stopReconciler := context.WithCancel(ctx)
	defer stopReconciler()
	go reconciler.Run(reconcileCtx)

	svc := service.NewReserveService(service.ReserveServiceConfig{
		Nodes:      stores,
		Locker:     locker,
		DB:         db,
		Reconciler: reconciler,
		Logger:     logger,
		Retry:      service.RetryConfig{MaxRetries: 50, BaseDelay: 2 * time.Millisecond, MaxDelay: 20 * time.Millisecond},
		LockTTL:    5 * time.Second,
	})

	var granted, soldOut, failed atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			_, err := svc.Reserve(ctx, fmt.Sprintf("user-%d", userID), product.ID, 1)
			switch {
			case err == nil:
				granted.Add(1)
			case errors.Is(err, service.ErrInsufficientStock):
				soldOut.Add(1)
			default:
				failed.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Granted:          %d\n", granted.Load())
	fmt.Printf("Sold Out:         %d\n", soldOut.Load())
	fmt.Printf("Failed:           %d\n", failed.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	expected := int32(*initialStock)
	if int64(*totalRequests) < *initialStock {
		expected = int32(*totalRequests)
	}
	if granted.Load() == expected {
		fmt.Printf("PASS: exactly %d reservations granted\n", expected)
	} else {
		fmt.Printf("FAIL: expected %d granted, got %d\n", expected, granted.Load())
	}

	cacheStock, _, err := stores[0].GetStock(ctx, product.ID)
	if err != nil {
		log.Fatalf("read cache stock: %v", err)
	}
	durableStock, err := db.GetStock(ctx, product.ID)
	if err != nil {
		log.Fatalf("read durable stock: %v", err)
	}
	fmt.Printf("Final Cache Stock:   %d\n", cacheStock)
	fmt.Printf("Final Durable Stock: %d\n", durableStock)

	if cacheStock == durableStock && cacheStock == *initialStock-int64(granted.Load()) {
		fmt.Println("PASS: cache and durable stock agree")
	} else {
		fmt.Println("FAIL: stock mismatch between cache and durable store")
	}
}
