package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ltdat/flashstock/internal/core/domain"
	"github.com/ltdat/flashstock/internal/port"
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) CreateProduct(ctx context.Context, product *domain.Product) error {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO products (name, description, price, stock, initial_stock, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		product.Name, product.Description, product.Price,
		product.Stock, product.InitialStock, product.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	product.ID = id
	return nil
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, stock, initial_stock, created_at
		FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.InitialStock, &p.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (m *MySQLAdapter) ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, description, price, stock, initial_stock, created_at
		FROM products ORDER BY id LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.InitialStock, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (m *MySQLAdapter) GetStock(ctx context.Context, productID int64) (int64, error) {
	var stock int64
	err := m.db.QueryRowContext(ctx,
		`SELECT stock FROM products WHERE id = ?`, productID,
	).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("product %d: %w", productID, sql.ErrNoRows)
	}
	if err != nil {
		return 0, fmt.Errorf("query stock: %w", err)
	}
	return stock, nil
}

func (m *MySQLAdapter) RecordPurchase(ctx context.Context, purchase domain.Purchase) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertPurchase(ctx, tx, purchase); err != nil {
		return err
	}
	if err := decrementDurableStock(ctx, tx, purchase.ProductID, purchase.Quantity); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *MySQLAdapter) RecordPurchases(ctx context.Context, purchases []domain.Purchase) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, purchase := range purchases {
		if err := insertPurchase(ctx, tx, purchase); err != nil {
			return err
		}
		if err := decrementDurableStock(ctx, tx, purchase.ProductID, purchase.Quantity); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertPurchase(ctx context.Context, tx *sql.Tx, purchase domain.Purchase) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO purchases (id, user_id, product_id, quantity, total_price, purchased_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		purchase.ID, purchase.UserID, purchase.ProductID,
		purchase.Quantity, purchase.TotalPrice, purchase.PurchasedAt,
	)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

// decrementDurableStock only matches when enough stock remains, so the
// durable counter can never go negative even if the cache admitted too much.
func decrementDurableStock(ctx context.Context, tx *sql.Tx, productID, quantity int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE products SET stock = stock - ?
		WHERE id = ? AND stock >= ?`,
		quantity, productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("product %d: %w", productID, port.ErrStockConflict)
	}
	return nil
}

func (m *MySQLAdapter) ListPurchasesByUser(ctx context.Context, userID string, limit int) ([]domain.Purchase, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, user_id, product_id, quantity, total_price, purchased_at
		FROM purchases WHERE user_id = ?
		ORDER BY purchased_at DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	var purchases []domain.Purchase
	for rows.Next() {
		var p domain.Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.ProductID, &p.Quantity, &p.TotalPrice, &p.PurchasedAt); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}
