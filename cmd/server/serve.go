package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"pkt.systems/pslog"

	"github.com/ltdat/flashstock/internal/adapter/events"
	"github.com/ltdat/flashstock/internal/adapter/handler"
	"github.com/ltdat/flashstock/internal/adapter/handler/pb"
	"github.com/ltdat/flashstock/internal/adapter/storage"
	"github.com/ltdat/flashstock/internal/config"
	"github.com/ltdat/flashstock/internal/core/service"
	"github.com/ltdat/flashstock/internal/lock"
	"github.com/ltdat/flashstock/internal/metrics"
	"github.com/ltdat/flashstock/internal/port"
)

func newServeCommand(logger pslog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reservation service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, logger)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger pslog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if lvl, ok := pslog.ParseLevel(cfg.LogLevel); ok {
		logger = logger.LogLevel(lvl)
	}

	clients := make([]redis.UniversalClient, len(cfg.RedisNodes))
	stores := make([]port.StockStore, len(cfg.RedisNodes))
	for i, addr := range cfg.RedisNodes {
		client := redis.NewClient(&redis.Options{Addr: addr, PoolSize: cfg.RedisPoolSize})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis.unreachable", "addr", addr, "error", err)
		}
		clients[i] = client
		stores[i] = storage.NewRedisAdapter(client)
	}
	defer func() {
		for _, c := range clients {
			c.Close()
		}
	}()

	var locker lock.Locker
	if cfg.UseQuorum {
		locker = lock.NewRedLock(clients,
			lock.WithNodeTimeout(cfg.NodeTimeout),
			lock.WithDrift(cfg.DriftFactor, cfg.DriftFloor),
		)
	} else {
		locker = lock.NewSingleLock(clients[0])
	}

	sqlDB, err := openMySQL(ctx, cfg.MySQLDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	db := storage.NewMySQLAdapter(sqlDB)

	var publisher port.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	reconciler := service.NewReconciler(stores, locker, db, publisher, logger, m, cfg.LockTTL)
	go reconciler.Run(ctx)

	reserveSvc := service.NewReserveService(service.ReserveServiceConfig{
		Nodes:        stores,
		Locker:       locker,
		DB:           db,
		Reconciler:   reconciler,
		Logger:       logger,
		Metrics:      m,
		LockTTL:      cfg.LockTTL,
		SafetyMargin: cfg.SafetyMargin,
		Retry: service.RetryConfig{
			MaxRetries: cfg.LockMaxRetries,
			BaseDelay:  cfg.LockBaseDelay,
			MaxDelay:   cfg.LockMaxDelay,
		},
	})
	productSvc := service.NewProductService(db, stores, logger)

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.NewHTTPHandler(reserveSvc, productSvc).Router(),
	}
	metricsSrv := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	grpcSrv := grpc.NewServer()
	pb.RegisterReservationServiceServer(grpcSrv, handler.NewGRPCHandler(reserveSvc))

	errCh := make(chan error, 3)
	go func() {
		logger.Info("http.listen", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics.listen", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()
	go func() {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			errCh <- fmt.Errorf("grpc listen: %w", err)
			return
		}
		logger.Info("grpc.listen", "addr", cfg.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown.signal")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown.http", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown.metrics", "error", err)
	}
	grpcSrv.GracefulStop()
	logger.Info("shutdown.done")
	return nil
}

func openMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}
