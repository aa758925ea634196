// Package paypal implements the redirect/capture payment provider. Checkout
// creates a remote order, the customer approves it on the provider's site,
// and the storefront captures the funds server-side. Only a COMPLETED
// capture counts as success.
package paypal

import (
	"context"

	"github.com/shopspring/decimal"
)

// Capture status the provider reports for a fully captured order.
const StatusCompleted = "COMPLETED"

// Order is a remote provider order awaiting customer approval.
type Order struct {
	ID         string
	Status     string
	ApproveURL string
}

// CaptureResult is the outcome of a capture call.
type CaptureResult struct {
	OrderID string
	Status  string
}

// Completed reports whether the capture settled the funds.
func (r *CaptureResult) Completed() bool {
	return r.Status == StatusCompleted
}

// OrderContext carries the redirect URLs attached to a remote order.
type OrderContext struct {
	ReturnURL string
	CancelURL string
}

// Provider is the redirect/capture contract the checkout flow depends on.
type Provider interface {
	// CreateOrder creates a remote order for the given amount and returns
	// its id and approval link. No local state is mutated.
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency string, octx OrderContext) (*Order, error)

	// CaptureOrder captures the funds for an approved order. Callers must
	// treat any status other than COMPLETED as a failed payment.
	CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error)
}
