package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

var ErrOrderNotFound = &Error{Code: ENOTFOUND, Message: "Order not found"}

// OrderStatus is the fixed lifecycle enumeration exposed to admin tooling.
type OrderStatus string

const (
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusFulfilled      OrderStatus = "FULFILLED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
	OrderStatusCashOnDelivery OrderStatus = "CASH_ON_DELIVERY"
)

// ValidOrderStatus reports whether s is in the admin-updatable set.
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPaid, OrderStatusFulfilled, OrderStatusCancelled, OrderStatusCashOnDelivery:
		return true
	}
	return false
}

// OrderItem is one line of an order's immutable item snapshot, serialized at
// creation and never re-derived from current product state.
type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int32           `json:"quantity"`
	Image     string          `json:"image,omitempty"`
}

// Order is a durable record of a completed purchase. Once created, the item
// snapshot and monetary fields are immutable; only Status may transition.
type Order struct {
	ID              int64
	UserID          int64
	Items           []OrderItem
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	ShippingAddress string
	PaymentMethod   PaymentMethod
	Status          OrderStatus
	CreatedAt       time.Time

	// Display-only fields populated by joined queries.
	CustomerName  string
	CustomerEmail string
}

// OrderInput carries the fields persisted at settlement.
type OrderInput struct {
	UserID          int64
	Items           []OrderItem
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	ShippingAddress string
	PaymentMethod   PaymentMethod
	Status          OrderStatus
}

// OrderStore is the append-only record of completed purchases.
type OrderStore interface {
	Create(ctx context.Context, input OrderInput) (*Order, error)

	// CountByUser returns the number of orders the user has placed. The
	// sequential "order number" shown to users is CountByUser + 1 at the
	// moment of settlement; it is a display value, not a stored identity.
	CountByUser(ctx context.Context, userID int64) (int64, error)

	FindByUser(ctx context.Context, userID int64) ([]Order, error)
	FindAll(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status OrderStatus) error
}
