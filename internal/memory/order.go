package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rhobart/minimart/internal/domain"
)

// OrderStore is a mutex-guarded in-memory domain.OrderStore.
type OrderStore struct {
	mu     sync.Mutex
	nextID int64
	orders []*domain.Order
}

var _ domain.OrderStore = (*OrderStore)(nil)

// NewOrderStore creates an empty in-memory order store.
func NewOrderStore() *OrderStore {
	return &OrderStore{nextID: 1}
}

func (s *OrderStore) Create(ctx context.Context, input domain.OrderInput) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := input.Status
	if !domain.ValidOrderStatus(string(status)) {
		status = domain.StatusForMethod(input.PaymentMethod)
	}

	items := make([]domain.OrderItem, len(input.Items))
	copy(items, input.Items)

	o := &domain.Order{
		ID:              s.nextID,
		UserID:          input.UserID,
		Items:           items,
		Subtotal:        input.Subtotal,
		Tax:             input.Tax,
		Total:           input.Total,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		Status:          status,
		CreatedAt:       time.Now(),
	}
	s.nextID++
	s.orders = append(s.orders, o)

	cp := *o
	return &cp, nil
}

func (s *OrderStore) CountByUser(ctx context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, o := range s.orders {
		if o.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *OrderStore) FindByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Order
	for i := len(s.orders) - 1; i >= 0; i-- {
		if s.orders[i].UserID == userID {
			out = append(out, *s.orders[i])
		}
	}
	return out, nil
}

func (s *OrderStore) FindAll(ctx context.Context) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Order, 0, len(s.orders))
	for i := len(s.orders) - 1; i >= 0; i-- {
		out = append(out, *s.orders[i])
	}
	return out, nil
}

func (s *OrderStore) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	if !domain.ValidOrderStatus(string(status)) {
		return domain.Invalid("order.update_status", "invalid status selected")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID == orderID {
			o.Status = status
			return nil
		}
	}
	return domain.ErrOrderNotFound
}
