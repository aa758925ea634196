// Package memory provides in-memory implementations of the domain stores.
// They keep the same contracts as the PostgreSQL stores, including the
// all-or-nothing stock decrement, and back the unit tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rhobart/minimart/internal/domain"
)

// ProductStore is a mutex-guarded in-memory domain.ProductStore.
type ProductStore struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.Product
}

var _ domain.ProductStore = (*ProductStore)(nil)

// NewProductStore creates an empty in-memory product store.
func NewProductStore() *ProductStore {
	return &ProductStore{nextID: 1, items: make(map[int64]*domain.Product)}
}

// Seed inserts products directly, for tests.
func (s *ProductStore) Seed(products ...domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		if p.ID == 0 {
			p.ID = s.nextID
		}
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
		cp := p
		s.items[p.ID] = &cp
	}
}

func (s *ProductStore) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Product
	for _, p := range s.items {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *ProductStore) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.items[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *ProductStore) Create(ctx context.Context, input domain.ProductInput) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &domain.Product{
		ID:        s.nextID,
		Name:      input.Name,
		Price:     input.Price,
		Category:  input.Category,
		Image:     input.Image,
		Quantity:  input.Quantity,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.nextID++
	s.items[p.ID] = p

	cp := *p
	return &cp, nil
}

func (s *ProductStore) Update(ctx context.Context, id int64, input domain.ProductInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Name = input.Name
	p.Price = input.Price
	p.Category = input.Category
	p.Image = input.Image
	p.Quantity = input.Quantity
	p.UpdatedAt = time.Now()
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(s.items, id)
	return nil
}

// EnsureStock mirrors the advisory pre-flight: read-only, first shortfall
// reported.
func (s *ProductStore) EnsureStock(ctx context.Context, items []domain.StockRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkLocked(items)
}

// DecrementStock holds the store lock for the whole check-then-subtract
// sequence, so concurrent callers serialize exactly like rows under
// FOR UPDATE: at most one caller wins the last units and a losing call
// changes nothing.
func (s *ProductStore) DecrementStock(ctx context.Context, items []domain.StockRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(items); err != nil {
		return err
	}
	for _, item := range items {
		s.items[item.ProductID].Quantity -= item.Quantity
	}
	return nil
}

func (s *ProductStore) checkLocked(items []domain.StockRequest) error {
	for _, item := range items {
		p, ok := s.items[item.ProductID]
		if !ok {
			return domain.ErrProductNotFound
		}
		if p.Quantity < item.Quantity {
			return &domain.InsufficientStockError{
				ProductID:   item.ProductID,
				ProductName: p.Name,
				Available:   p.Quantity,
				Requested:   item.Quantity,
			}
		}
	}
	return nil
}
