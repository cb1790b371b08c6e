package service

import (
	"context"
	"fmt"
	"time"

	"pkt.systems/pslog"

	"github.com/ltdat/flashstock/internal/core/domain"
	"github.com/ltdat/flashstock/internal/port"
)

// ProductService manages the catalog and keeps the admission counters seeded
// from the durable stock.
type ProductService struct {
	db     port.DatabaseRepository
	nodes  []port.StockStore
	logger pslog.Logger
}

func NewProductService(db port.DatabaseRepository, nodes []port.StockStore, logger pslog.Logger) *ProductService {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &ProductService{db: db, nodes: nodes, logger: logger}
}

// CreateProduct inserts the product and seeds its admission counter on every
// node. A node that already carries a counter keeps it.
func (s *ProductService) CreateProduct(ctx context.Context, name, description string, price, initialStock int64) (*domain.Product, error) {
	if name == "" {
		return nil, fmt.Errorf("create product: name must not be empty")
	}
	if price < 0 {
		return nil, fmt.Errorf("create product: price must not be negative, got %d", price)
	}
	if initialStock < 0 {
		return nil, fmt.Errorf("create product: initial stock must not be negative, got %d", initialStock)
	}

	product := &domain.Product{
		Name:         name,
		Description:  description,
		Price:        price,
		Stock:        initialStock,
		InitialStock: initialStock,
		CreatedAt:    time.Now(),
	}
	if err := s.db.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", ErrUnavailable)
	}

	if err := s.seedNodes(ctx, product.ID, initialStock); err != nil {
		return nil, err
	}

	s.logger.Info("product.created",
		"product_id", product.ID, "name", name, "initial_stock", initialStock)
	return product, nil
}

// SeedStock seeds the admission counter for an existing product from its
// durable stock. Used after adding cache nodes or flushing Redis.
func (s *ProductService) SeedStock(ctx context.Context, productID int64) error {
	product, err := s.db.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("seed stock: %w", ErrUnavailable)
	}
	if product == nil {
		return ErrNotFound
	}
	return s.seedNodes(ctx, productID, product.Stock)
}

func (s *ProductService) seedNodes(ctx context.Context, productID, stock int64) error {
	for i, node := range s.nodes {
		created, err := node.SeedStock(ctx, productID, stock)
		if err != nil {
			return fmt.Errorf("seed stock on node %d: %w", i, ErrUnavailable)
		}
		if !created {
			s.logger.Debug("product.seed_skipped", "product_id", productID, "node", i)
		}
	}
	return nil
}

func (s *ProductService) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	product, err := s.db.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", ErrUnavailable)
	}
	if product == nil {
		return nil, ErrNotFound
	}
	return product, nil
}

func (s *ProductService) ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	products, err := s.db.ListProducts(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", ErrUnavailable)
	}
	return products, nil
}

// GetProductStock returns both stock views. Synced is false when the cached
// counter has drifted from the durable one, or when the counter is missing.
func (s *ProductService) GetProductStock(ctx context.Context, productID int64) (*domain.ProductStock, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	cacheStock, found := int64(0), false
	for _, node := range s.nodes {
		stock, ok, err := node.GetStock(ctx, productID)
		if err != nil {
			continue
		}
		if ok {
			cacheStock, found = stock, true
			break
		}
	}

	return &domain.ProductStock{
		Product:    *product,
		CacheStock: cacheStock,
		Synced:     found && cacheStock == product.Stock,
	}, nil
}

func (s *ProductService) ListPurchases(ctx context.Context, userID string, limit int) ([]domain.Purchase, error) {
	if userID == "" {
		return nil, fmt.Errorf("list purchases: user id must not be empty")
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	purchases, err := s.db.ListPurchasesByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", ErrUnavailable)
	}
	return purchases, nil
}
