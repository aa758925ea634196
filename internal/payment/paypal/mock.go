package paypal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockProvider is a mock redirect/capture provider for testing.
// Simulates successful payment flows without calling the provider API.
type MockProvider struct {
	// CreateOrderFunc allows customizing order creation behavior
	CreateOrderFunc func(ctx context.Context, amount decimal.Decimal, currency string, octx OrderContext) (*Order, error)

	// CaptureOrderFunc allows customizing capture behavior
	CaptureOrderFunc func(ctx context.Context, orderID string) (*CaptureResult, error)

	// CallLog tracks method calls for test assertions
	CallLog []string
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a new mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{CallLog: []string{}}
}

// CreateOrder creates a mock remote order.
func (m *MockProvider) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string, octx OrderContext) (*Order, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateOrder(%s, %s)", amount.StringFixed(2), currency))

	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, amount, currency, octx)
	}

	id := "MOCK-" + uuid.NewString()
	return &Order{
		ID:         id,
		Status:     "CREATED",
		ApproveURL: "https://example.com/approve/" + id,
	}, nil
}

// CaptureOrder captures a mock order as COMPLETED.
func (m *MockProvider) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CaptureOrder(%s)", orderID))

	if m.CaptureOrderFunc != nil {
		return m.CaptureOrderFunc(ctx, orderID)
	}

	return &CaptureResult{OrderID: orderID, Status: StatusCompleted}, nil
}
