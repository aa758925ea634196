package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rhobart/minimart/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL. Orders are
// append-only: after creation only the status column ever changes.
type OrderStore struct {
	pool *pgxpool.Pool
}

var _ domain.OrderStore = (*OrderStore)(nil)

// NewOrderStore creates a new PostgreSQL-backed order store.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Create persists an order with its item snapshot serialized to JSONB.
// The snapshot is written once and never re-derived from product state.
func (s *OrderStore) Create(ctx context.Context, input domain.OrderInput) (*domain.Order, error) {
	items, err := json.Marshal(input.Items)
	if err != nil {
		return nil, domain.Internal(err, "order.create", "failed to serialize order items")
	}

	status := input.Status
	if !domain.ValidOrderStatus(string(status)) {
		status = domain.StatusForMethod(input.PaymentMethod)
	}

	var order domain.Order
	err = s.pool.QueryRow(ctx, `
		INSERT INTO orders (user_id, items, subtotal, tax, total, shipping_address, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		input.UserID, items, input.Subtotal, input.Tax, input.Total,
		input.ShippingAddress, string(input.PaymentMethod), string(status),
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, domain.Internal(err, "order.create", "failed to create order")
	}

	order.UserID = input.UserID
	order.Items = input.Items
	order.Subtotal = input.Subtotal
	order.Tax = input.Tax
	order.Total = input.Total
	order.ShippingAddress = input.ShippingAddress
	order.PaymentMethod = input.PaymentMethod
	order.Status = status

	return &order, nil
}

// CountByUser returns how many orders the user has placed.
func (s *OrderStore) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, domain.Internal(err, "order.count", "failed to count orders")
	}
	return count, nil
}

const orderSelect = `
	SELECT o.id, o.user_id, o.items, o.subtotal, o.tax, o.total,
	       o.shipping_address, o.payment_method, o.status, o.created_at,
	       COALESCE(u.username, ''), COALESCE(u.email, '')
	FROM orders o
	LEFT JOIN users u ON u.id = o.user_id`

func scanOrders(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		var items []byte
		var method, status string
		err := rows.Scan(&o.ID, &o.UserID, &items, &o.Subtotal, &o.Tax, &o.Total,
			&o.ShippingAddress, &method, &status, &o.CreatedAt,
			&o.CustomerName, &o.CustomerEmail)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, err
		}
		o.PaymentMethod = domain.PaymentMethod(method)
		o.Status = domain.OrderStatus(status)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// FindByUser returns the user's orders, newest first.
func (s *OrderStore) FindByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx, orderSelect+` WHERE o.user_id = $1 ORDER BY o.created_at DESC`, userID)
	if err != nil {
		return nil, domain.Internal(err, "order.find_by_user", "failed to query orders")
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, domain.Internal(err, "order.find_by_user", "failed to scan orders")
	}
	return orders, nil
}

// FindAll returns every order, newest first, for the admin dashboard.
func (s *OrderStore) FindAll(ctx context.Context) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx, orderSelect+` ORDER BY o.created_at DESC`)
	if err != nil {
		return nil, domain.Internal(err, "order.find_all", "failed to query orders")
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, domain.Internal(err, "order.find_all", "failed to scan orders")
	}
	return orders, nil
}

// UpdateStatus transitions an order's status. Values outside the fixed
// enumeration are rejected before touching the database.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	if !domain.ValidOrderStatus(string(status)) {
		return domain.Invalid("order.update_status", "invalid status selected")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`, orderID, string(status),
	)
	if err != nil {
		return domain.Internal(err, "order.update_status", "failed to update order status")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
