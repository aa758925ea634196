package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// WishlistItem is a saved product on a user's wishlist, joined with live
// catalog fields for display.
type WishlistItem struct {
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Image     string
	AddedAt   time.Time
}

// WishlistStore persists per-user saved products.
type WishlistStore interface {
	// Add saves a product for the user; adding twice is a no-op.
	Add(ctx context.Context, userID, productID int64) error
	Remove(ctx context.Context, userID, productID int64) error
	ListByUser(ctx context.Context, userID int64) ([]WishlistItem, error)
}
