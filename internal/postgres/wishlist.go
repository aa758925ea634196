package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rhobart/minimart/internal/domain"
)

// WishlistStore implements domain.WishlistStore using PostgreSQL.
type WishlistStore struct {
	pool *pgxpool.Pool
}

var _ domain.WishlistStore = (*WishlistStore)(nil)

// NewWishlistStore creates a new PostgreSQL-backed wishlist store.
func NewWishlistStore(pool *pgxpool.Pool) *WishlistStore {
	return &WishlistStore{pool: pool}
}

// Add saves a product for the user. Re-adding is a no-op.
func (s *WishlistStore) Add(ctx context.Context, userID, productID int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wishlists (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING`,
		userID, productID,
	)
	if err != nil {
		return domain.Internal(err, "wishlist.add", "failed to add wishlist item")
	}
	return nil
}

// Remove drops a product from the user's wishlist.
func (s *WishlistStore) Remove(ctx context.Context, userID, productID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM wishlists WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return domain.Internal(err, "wishlist.remove", "failed to remove wishlist item")
	}
	return nil
}

// ListByUser returns the user's saved products joined with catalog fields.
func (s *WishlistStore) ListByUser(ctx context.Context, userID int64) ([]domain.WishlistItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT w.product_id, p.name, p.price, p.image, w.created_at
		FROM wishlists w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, domain.Internal(err, "wishlist.list", "failed to list wishlist")
	}
	defer rows.Close()

	var items []domain.WishlistItem
	for rows.Next() {
		var it domain.WishlistItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Price, &it.Image, &it.AddedAt); err != nil {
			return nil, domain.Internal(err, "wishlist.list", "failed to scan wishlist item")
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "wishlist.list", "failed to read wishlist")
	}

	return items, nil
}
