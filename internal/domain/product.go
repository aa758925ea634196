package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRODUCT DOMAIN ERRORS
// =============================================================================

var (
	ErrProductNotFound = &Error{Code: ENOTFOUND, Message: "Product not found"}
	ErrOutOfStock      = &Error{Code: EINVALID, Message: "This product is out of stock"}
)

// InsufficientStockError reports the first product that cannot cover a
// requested quantity. It is returned by both the advisory pre-flight check
// and the transactional decrement.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int32
	Requested   int32
}

func (e *InsufficientStockError) Error() string {
	if e.ProductName != "" {
		return fmt.Sprintf("only %d unit(s) of %s left in stock", e.Available, e.ProductName)
	}
	return fmt.Sprintf("only %d unit(s) left in stock", e.Available)
}

// =============================================================================
// TYPES
// =============================================================================

// Product is a catalog item. Quantity is quantity-on-hand and is only ever
// decremented inside the store's serialized check-and-decrement.
type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	Category  string
	Image     string
	Quantity  int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Category string
}

// StockRequest is one (product, quantity) pair for a stock operation.
type StockRequest struct {
	ProductID int64
	Quantity  int32
}

// ProductInput carries admin-supplied product fields.
type ProductInput struct {
	Name     string
	Price    decimal.Decimal
	Category string
	Image    string
	Quantity int32
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

// ProductStore provides durable product persistence and the stock ledger.
type ProductStore interface {
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	FindByID(ctx context.Context, id int64) (*Product, error)
	Create(ctx context.Context, input ProductInput) (*Product, error)
	Update(ctx context.Context, id int64, input ProductInput) error
	Delete(ctx context.Context, id int64) error

	// EnsureStock verifies quantity-on-hand covers every request. It is an
	// advisory pre-flight only: it takes no locks and mutates nothing. The
	// first shortfall is reported as *InsufficientStockError.
	EnsureStock(ctx context.Context, items []StockRequest) error

	// DecrementStock subtracts the requested quantities in a single
	// all-or-nothing transaction. Each row is re-read under an exclusive
	// lock and re-checked before subtraction; any shortfall rolls back
	// every decrement made in this call. Of two racing callers contending
	// for the last units, at most one succeeds.
	DecrementStock(ctx context.Context, items []StockRequest) error
}
