package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rhobart/minimart/internal/domain"
)

// ProductStore implements domain.ProductStore using PostgreSQL.
type ProductStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that ProductStore implements domain.ProductStore.
var _ domain.ProductStore = (*ProductStore)(nil)

// NewProductStore creates a new PostgreSQL-backed product store.
func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

const productColumns = `id, name, price, category, image, quantity, created_at, updated_at`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Image, &p.Quantity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns catalog products, optionally filtered by category.
func (s *ProductStore) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY name`
	args := []any{}
	if filter.Category != "" {
		query = `SELECT ` + productColumns + ` FROM products WHERE category = $1 ORDER BY name`
		args = append(args, filter.Category)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.Internal(err, "product.list", "failed to list products")
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, domain.Internal(err, "product.list", "failed to scan product")
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "product.list", "failed to read products")
	}

	return products, nil
}

// FindByID retrieves a single product.
func (s *ProductStore) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, domain.Internal(err, "product.get", "failed to get product")
	}
	return p, nil
}

// Create inserts a new catalog product.
func (s *ProductStore) Create(ctx context.Context, input domain.ProductInput) (*domain.Product, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO products (name, price, category, image, quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+productColumns,
		input.Name, input.Price, input.Category, input.Image, input.Quantity,
	)
	p, err := scanProduct(row)
	if err != nil {
		return nil, domain.Internal(err, "product.create", "failed to create product")
	}
	return p, nil
}

// Update replaces the product's editable fields.
func (s *ProductStore) Update(ctx context.Context, id int64, input domain.ProductInput) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET name = $2, price = $3, category = $4, image = $5, quantity = $6, updated_at = now()
		WHERE id = $1`,
		id, input.Name, input.Price, input.Category, input.Image, input.Quantity,
	)
	if err != nil {
		return domain.Internal(err, "product.update", "failed to update product")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// Delete removes a product from the catalog.
func (s *ProductStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return domain.Internal(err, "product.delete", "failed to delete product")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// =============================================================================
// STOCK LEDGER
// =============================================================================

// EnsureStock verifies current quantity-on-hand covers every request.
// Advisory only: it takes no locks, so it can pass and DecrementStock can
// still fail after an async payment step. The authoritative check lives in
// DecrementStock.
func (s *ProductStore) EnsureStock(ctx context.Context, items []domain.StockRequest) error {
	for _, item := range items {
		var name string
		var available int32
		err := s.pool.QueryRow(ctx,
			`SELECT name, quantity FROM products WHERE id = $1`, item.ProductID,
		).Scan(&name, &available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrProductNotFound
			}
			return domain.Internal(err, "stock.ensure", "failed to read stock")
		}

		if available < item.Quantity {
			return &domain.InsufficientStockError{
				ProductID:   item.ProductID,
				ProductName: name,
				Available:   available,
				Requested:   item.Quantity,
			}
		}
	}
	return nil
}

// DecrementStock subtracts the requested quantities as a single
// all-or-nothing transaction. Every row is re-read under FOR UPDATE and
// re-checked before the subtraction, so two checkouts contending for the
// last units serialize on the row lock and at most one succeeds. Any
// shortfall aborts the transaction and rolls back every decrement made in
// this call.
func (s *ProductStore) DecrementStock(ctx context.Context, items []domain.StockRequest) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Internal(err, "stock.decrement", "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	for _, item := range items {
		var name string
		var available int32
		err := tx.QueryRow(ctx,
			`SELECT name, quantity FROM products WHERE id = $1 FOR UPDATE`, item.ProductID,
		).Scan(&name, &available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrProductNotFound
			}
			return domain.Internal(err, "stock.decrement", "failed to lock stock row")
		}

		if available < item.Quantity {
			return &domain.InsufficientStockError{
				ProductID:   item.ProductID,
				ProductName: name,
				Available:   available,
				Requested:   item.Quantity,
			}
		}

		_, err = tx.Exec(ctx,
			`UPDATE products SET quantity = quantity - $2, updated_at = now() WHERE id = $1`,
			item.ProductID, item.Quantity,
		)
		if err != nil {
			return domain.Internal(err, "stock.decrement", "failed to decrement stock")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Internal(err, "stock.decrement", "failed to commit decrement")
	}
	return nil
}
