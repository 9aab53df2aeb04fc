package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tokobuku/backend/internal/domain"
	"tokobuku/backend/internal/store"
)

const productColumns = `p.id, p.name, p.sku, p.category, p.price_cents, p.cost_price_cents, p.quantity, p.min_stock, p.description, p.created_at, p.updated_at`

func scanProduct(s scanner) (domain.Product, error) {
	var p domain.Product
	var sku sql.NullString
	err := s.Scan(&p.ID, &p.Name, &sku, &p.Category, &p.PriceCents, &p.CostPriceCents, &p.Quantity, &p.MinStock, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.SKU = sku.String
	p.StockStatus = domain.StockStatusOf(p.Quantity, p.MinStock)
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Quantity < 0 {
		return nil, store.ErrInvalidTransaction
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	id, err := s.insert(ctx, s.db, "create product", `
		INSERT INTO products (name, sku, category, price_cents, cost_price_cents, quantity, min_stock, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, product.Name, nullIfEmpty(product.SKU), product.Category, product.PriceCents, product.CostPriceCents,
		product.Quantity, product.MinStock, product.Description, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return nil, err
	}

	product.ID = id
	product.StockStatus = domain.StockStatusOf(product.Quantity, product.MinStock)
	return &product, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id))
	if err != nil {
		return nil, s.mapError("get product", err)
	}
	return &p, nil
}

// UpdateProduct rewrites the descriptive and pricing fields. Quantity is only
// changed through the stock operations.
func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	affected, err := s.exec(ctx, s.db, "update product", `
		UPDATE products
		SET name = $1, sku = $2, category = $3, price_cents = $4, cost_price_cents = $5,
			min_stock = $6, description = $7, updated_at = $8
		WHERE id = $9
	`, product.Name, nullIfEmpty(product.SKU), product.Category, product.PriceCents, product.CostPriceCents,
		product.MinStock, product.Description, time.Now().UTC(), product.ID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("update product: %w", store.ErrNotFound)
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) ListProducts(ctx context.Context, pf domain.ProductFilter) ([]domain.Product, error) {
	var f filter
	if pf.Search != "" {
		f.add("(LOWER(p.name) LIKE $%[1]d ESCAPE '\\' OR LOWER(COALESCE(p.sku, '')) LIKE $%[1]d ESCAPE '\\' OR LOWER(p.description) LIKE $%[1]d ESCAPE '\\')", likePattern(pf.Search))
	}
	if pf.Category != "" {
		f.add("p.category = $%d", pf.Category)
	}
	switch pf.StockStatus {
	case "low":
		f.clauses = append(f.clauses, "p.quantity <= p.min_stock AND p.quantity > 0")
	case "out":
		f.clauses = append(f.clauses, "p.quantity = 0")
	}

	return s.listProducts(ctx, "list products", `SELECT `+productColumns+` FROM products p`+f.where()+` ORDER BY p.name, p.id`, f.args...)
}

func (s *Store) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	return s.listProducts(ctx, "low stock products", `
		SELECT `+productColumns+`
		FROM products p
		WHERE p.quantity <= p.min_stock
		ORDER BY p.quantity ASC, p.name
	`)
}

func (s *Store) listProducts(ctx context.Context, op string, query string, args ...any) ([]domain.Product, error) {
	products := make([]domain.Product, 0, 64)
	err := s.queryRows(ctx, s.db, op, query, args, func(row scanner) error {
		p, err := scanProduct(row)
		if err != nil {
			return err
		}
		products = append(products, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	categories := make([]string, 0, 16)
	err := s.queryRows(ctx, s.db, "list categories", `
		SELECT DISTINCT category
		FROM products
		WHERE category <> ''
		ORDER BY category
	`, nil, func(row scanner) error {
		var category string
		if err := row.Scan(&category); err != nil {
			return err
		}
		categories = append(categories, category)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	if err := s.queryRow(ctx, s.db, "count products", `SELECT COUNT(*) FROM products`, nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// DecreaseStock removes qty units only when that many are on hand.
func (s *Store) DecreaseStock(ctx context.Context, productID int64, qty int) error {
	if qty < 1 {
		return store.ErrInvalidTransaction
	}
	return s.decreaseStock(ctx, s.db, productID, qty, time.Now().UTC())
}

// decreaseStock is the guarded decrement shared by the standalone operation and
// the invoice transaction.
func (s *Store) decreaseStock(ctx context.Context, q querier, productID int64, qty int, at time.Time) error {
	affected, err := s.exec(ctx, q, "decrease stock", `
		UPDATE products
		SET quantity = quantity - $1, updated_at = $2
		WHERE id = $3 AND quantity >= $1
	`, qty, at, productID)
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var exists int
	err = s.queryRow(ctx, q, "decrease stock", `SELECT 1 FROM products WHERE id = $1`, []any{productID}, &exists)
	if err != nil {
		return err
	}
	return fmt.Errorf("product %d: %w", productID, store.ErrInsufficientStock)
}

func (s *Store) IncreaseStock(ctx context.Context, productID int64, qty int) error {
	if qty < 1 {
		return store.ErrInvalidTransaction
	}
	return s.increaseStock(ctx, s.db, productID, qty, time.Now().UTC())
}

func (s *Store) increaseStock(ctx context.Context, q querier, productID int64, qty int, at time.Time) error {
	affected, err := s.exec(ctx, q, "increase stock", `
		UPDATE products
		SET quantity = quantity + $1, updated_at = $2
		WHERE id = $3
	`, qty, at, productID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("increase stock: product %d: %w", productID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) SetStock(ctx context.Context, productID int64, qty int) error {
	if qty < 0 {
		return store.ErrInvalidTransaction
	}
	affected, err := s.exec(ctx, s.db, "set stock", `
		UPDATE products
		SET quantity = $1, updated_at = $2
		WHERE id = $3
	`, qty, time.Now().UTC(), productID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("set stock: product %d: %w", productID, store.ErrNotFound)
	}
	return nil
}
