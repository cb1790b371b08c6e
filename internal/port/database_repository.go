package port

import (
	"context"
	"errors"

	"github.com/ltdat/flashstock/internal/core/domain"
)

// ErrStockConflict means the guarded durable decrement matched no row: the
// admission cache let a purchase through that the database cannot honor.
var ErrStockConflict = errors.New("durable stock conflict")

// DatabaseRepository is the durable side of the inventory. The products.stock
// column is the ground truth for units sold; the cache counters only gate
// admission.
type DatabaseRepository interface {
	// CreateProduct inserts a product and fills the generated ID.
	CreateProduct(ctx context.Context, product *domain.Product) error

	// GetProduct returns nil when the product does not exist.
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)

	ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, error)

	// GetStock reads the durable counter for one product.
	GetStock(ctx context.Context, productID int64) (int64, error)

	// RecordPurchase writes the purchase row and applies the guarded durable
	// decrement in a single transaction. Returns ErrStockConflict when the
	// durable counter would go negative.
	RecordPurchase(ctx context.Context, purchase domain.Purchase) error

	// RecordPurchases persists all rows of a bundle in one transaction.
	// Either every line commits or none does.
	RecordPurchases(ctx context.Context, purchases []domain.Purchase) error

	ListPurchasesByUser(ctx context.Context, userID string, limit int) ([]domain.Purchase, error)
}
