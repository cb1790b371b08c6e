package main

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/ltdat/flashstock/internal/adapter/storage"
	"github.com/ltdat/flashstock/internal/config"
	"github.com/ltdat/flashstock/internal/core/service"
	"github.com/ltdat/flashstock/internal/port"
)

func newSeedCommand(logger pslog.Logger) *cobra.Command {
	var (
		productID   int64
		name        string
		description string
		price       int64
		stock       int64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a product or load an existing product's counters",
		Long: `Seed loads stock counters onto every Redis node. With --product-id it
reads the durable stock of an existing product; with --name it first
creates the product.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if productID == 0 && name == "" {
				return fmt.Errorf("either --product-id or --name is required")
			}

			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			sqlDB, err := openMySQL(ctx, cfg.MySQLDSN)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			stores := make([]port.StockStore, len(cfg.RedisNodes))
			clients := make([]*redis.Client, len(cfg.RedisNodes))
			for i, addr := range cfg.RedisNodes {
				clients[i] = redis.NewClient(&redis.Options{Addr: addr, PoolSize: cfg.RedisPoolSize})
				stores[i] = storage.NewRedisAdapter(clients[i])
			}
			defer func() {
				for _, c := range clients {
					c.Close()
				}
			}()

			products := service.NewProductService(storage.NewMySQLAdapter(sqlDB), stores, logger)

			if productID != 0 {
				if err := products.SeedStock(ctx, productID); err != nil {
					return err
				}
				logger.Info("seed.loaded", "product_id", productID)
				return nil
			}

			product, err := products.CreateProduct(ctx, name, description, price, stock)
			if err != nil {
				return err
			}
			logger.Info("seed.created", "product_id", product.ID, "stock", product.Stock)
			return nil
		},
	}

	cmd.Flags().Int64Var(&productID, "product-id", 0, "existing product to seed from durable stock")
	cmd.Flags().StringVar(&name, "name", "", "name for a new product")
	cmd.Flags().StringVar(&description, "description", "", "description for a new product")
	cmd.Flags().Int64Var(&price, "price", 0, "unit price in cents for a new product")
	cmd.Flags().Int64Var(&stock, "stock", 0, "initial stock for a new product")
	return cmd
}
