// Package events publishes storefront domain events to NATS. Publishing is
// best-effort: a failed publish is logged, never surfaced to the customer.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/rhobart/minimart/internal/domain"
)

// SubjectOrderCreated is the subject order settlement events are published on.
const SubjectOrderCreated = "minimart.orders.created"

// OrderCreated is the event emitted once per settled order.
type OrderCreated struct {
	EventID       string          `json:"event_id"`
	OrderID       int64           `json:"order_id"`
	OrderNumber   int64           `json:"order_number"`
	UserID        int64           `json:"user_id"`
	Total         string          `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Items         []OrderItemInfo `json:"items"`
}

// OrderItemInfo is one line of the event's item summary.
type OrderItemInfo struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int32  `json:"quantity"`
}

// Publisher emits storefront events.
type Publisher interface {
	OrderCreated(order *domain.Order, orderNumber int64) error
}

// =============================================================================
// NATS PUBLISHER
// =============================================================================

// NATSPublisher publishes events to a NATS connection.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to the given NATS URL.
func NewNATSPublisher(url string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("minimart"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSPublisher{conn: conn, logger: logger.With("component", "events")}, nil
}

// OrderCreated publishes the settlement event for an order.
func (p *NATSPublisher) OrderCreated(order *domain.Order, orderNumber int64) error {
	evt := OrderCreated{
		EventID:       uuid.NewString(),
		OrderID:       order.ID,
		OrderNumber:   orderNumber,
		UserID:        order.UserID,
		Total:         order.Total.StringFixed(2),
		PaymentMethod: string(order.PaymentMethod),
		Status:        string(order.Status),
		OccurredAt:    time.Now().UTC(),
	}
	for _, item := range order.Items {
		evt.Items = append(evt.Items, OrderItemInfo{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
		})
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	if err := p.conn.Publish(SubjectOrderCreated, data); err != nil {
		return fmt.Errorf("failed to publish order event: %w", err)
	}

	p.logger.Debug("order event published",
		"subject", SubjectOrderCreated,
		"order_id", order.ID)
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("failed to drain nats connection", "error", err)
	}
}

// =============================================================================
// NOP PUBLISHER
// =============================================================================

// NopPublisher discards events. Used when no NATS URL is configured and in
// tests that do not assert on events.
type NopPublisher struct{}

var _ Publisher = (*NopPublisher)(nil)

func (NopPublisher) OrderCreated(*domain.Order, int64) error { return nil }
