package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rhobart/minimart/internal/domain"
)

// WishlistStore is a mutex-guarded in-memory domain.WishlistStore. Catalog
// fields are joined from the product store at list time.
type WishlistStore struct {
	mu       sync.Mutex
	products *ProductStore
	saved    map[int64]map[int64]time.Time
}

var _ domain.WishlistStore = (*WishlistStore)(nil)

// NewWishlistStore creates an empty in-memory wishlist store backed by the
// given product store.
func NewWishlistStore(products *ProductStore) *WishlistStore {
	return &WishlistStore{
		products: products,
		saved:    map[int64]map[int64]time.Time{},
	}
}

func (s *WishlistStore) Add(ctx context.Context, userID, productID int64) error {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byUser := s.saved[userID]
	if byUser == nil {
		byUser = map[int64]time.Time{}
		s.saved[userID] = byUser
	}
	if _, ok := byUser[productID]; !ok {
		byUser[productID] = time.Now()
	}
	return nil
}

func (s *WishlistStore) Remove(ctx context.Context, userID, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved[userID], productID)
	return nil
}

func (s *WishlistStore) ListByUser(ctx context.Context, userID int64) ([]domain.WishlistItem, error) {
	s.mu.Lock()
	byUser := make(map[int64]time.Time, len(s.saved[userID]))
	for id, at := range s.saved[userID] {
		byUser[id] = at
	}
	s.mu.Unlock()

	items := make([]domain.WishlistItem, 0, len(byUser))
	for id, at := range byUser {
		p, err := s.products.FindByID(ctx, id)
		if err != nil {
			// Product removed from the catalog since it was saved.
			continue
		}
		items = append(items, domain.WishlistItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Image:     p.Image,
			AddedAt:   at,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].AddedAt.After(items[j].AddedAt) })
	return items, nil
}
