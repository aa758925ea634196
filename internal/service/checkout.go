package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/events"
	"github.com/rhobart/minimart/internal/payment/nets"
	"github.com/rhobart/minimart/internal/payment/paypal"
	"github.com/rhobart/minimart/internal/session"
)

// NextAction tells the handler where to send the customer after Begin.
type NextAction int

const (
	// NextSettled means the order was created synchronously.
	NextSettled NextAction = iota

	// NextCardForm means card details are still needed: a second-step form.
	NextCardForm

	// NextPayPalRedirect means the customer must approve on the provider.
	NextPayPalRedirect

	// NextNetsQR means a QR code must be generated and shown.
	NextNetsQR
)

// BeginParams carries the checkout form submission.
type BeginParams struct {
	ShippingAddress string
	PaymentMethod   string

	// Card fields, present only on the second card step.
	CardNumber string
	CardExpiry string
	CardCVC    string
}

// hasCardDetails reports whether the card second step has been filled in.
func (p BeginParams) hasCardDetails() bool {
	return p.CardNumber != "" && p.CardExpiry != "" && p.CardCVC != ""
}

// Settlement is the outcome of a successful settlement.
type Settlement struct {
	Order *domain.Order

	// OrderNumber is the user's sequential display number, computed at the
	// moment of settlement.
	OrderNumber int64
}

// BeginResult is the outcome of a checkout entry.
type BeginResult struct {
	Next       NextAction
	Settlement *Settlement
}

// CheckoutService drives the checkout state machine. All session state is
// passed in explicitly; the service holds none of its own.
type CheckoutService interface {
	// Begin runs the checkout entry: empty-cart guard, shipping capture,
	// payment method resolution, then dispatch to the method's flow.
	Begin(ctx context.Context, sess *session.Session, params BeginParams) (*BeginResult, error)

	// CreatePayPalOrder creates the remote order for the staged checkout
	// and returns it for client-side approval.
	CreatePayPalOrder(ctx context.Context, sess *session.Session, octx paypal.OrderContext) (*paypal.Order, error)

	// FinalizePayPal captures the approved remote order and, only on a
	// COMPLETED capture, settles exactly once.
	FinalizePayPal(ctx context.Context, sess *session.Session, remoteOrderID string) (*Settlement, error)

	// GenerateNetsQR requests a QR code for the staged checkout and stages
	// the payment session keyed by the provider's retrieval reference.
	GenerateNetsQR(ctx context.Context, sess *session.Session) (*nets.QR, error)

	// FinalizeNets settles the staged QR attempt. It is idempotent per
	// attempt: once the completion marker is set, reloads return the same
	// settlement without creating another order.
	FinalizeNets(ctx context.Context, sess *session.Session) (*Settlement, error)
}

// paymentFlow is one payment method's checkout entry behavior. The flow
// table is closed: adding a method means adding an entry here, checked at
// compile time, not a new string branch in a handler.
type paymentFlow interface {
	begin(ctx context.Context, s *checkoutService, sess *session.Session, params BeginParams) (*BeginResult, error)
}

type checkoutService struct {
	products domain.ProductStore
	orders   domain.OrderStore
	users    domain.UserStore
	paypal   paypal.Provider
	nets     nets.Provider
	events   events.Publisher
	logger   *slog.Logger

	flows map[domain.PaymentMethod]paymentFlow
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService creates a new CheckoutService instance.
func NewCheckoutService(
	products domain.ProductStore,
	orders domain.OrderStore,
	users domain.UserStore,
	paypalProvider paypal.Provider,
	netsProvider nets.Provider,
	publisher events.Publisher,
	logger *slog.Logger,
) CheckoutService {
	s := &checkoutService{
		products: products,
		orders:   orders,
		users:    users,
		paypal:   paypalProvider,
		nets:     netsProvider,
		events:   publisher,
		logger:   logger.With("service", "checkout"),
	}
	s.flows = map[domain.PaymentMethod]paymentFlow{
		domain.PaymentCash:   synchronousFlow{},
		domain.PaymentCard:   cardFlow{},
		domain.PaymentWallet: synchronousFlow{},
		domain.PaymentPayPal: stagedFlow{next: NextPayPalRedirect},
		domain.PaymentNets:   stagedFlow{next: NextNetsQR},
	}
	return s
}

// Begin runs the checkout entry state machine.
func (s *checkoutService) Begin(ctx context.Context, sess *session.Session, params BeginParams) (*BeginResult, error) {
	cart := sess.Cart()
	if cart.IsEmpty() {
		return nil, domain.ErrCartEmpty
	}

	shipping := params.ShippingAddress
	if shipping == "" {
		if pending := sess.PendingCheckout(); pending != nil {
			shipping = pending.ShippingAddress
		}
	}
	if shipping == "" {
		return nil, domain.ErrMissingShipping
	}

	method := domain.ParsePaymentMethod(params.PaymentMethod)
	params.ShippingAddress = shipping

	return s.flows[method].begin(ctx, s, sess, params)
}

// =============================================================================
// FLOWS
// =============================================================================

// synchronousFlow settles immediately: cash and stored balance have no
// intermediate async leg.
type synchronousFlow struct{}

func (synchronousFlow) begin(ctx context.Context, s *checkoutService, sess *session.Session, params BeginParams) (*BeginResult, error) {
	method := domain.ParsePaymentMethod(params.PaymentMethod)
	settlement, err := s.settle(ctx, sess, params.ShippingAddress, method)
	if err != nil {
		return nil, err
	}
	return &BeginResult{Next: NextSettled, Settlement: settlement}, nil
}

// cardFlow stages a second-step form until card details arrive, then
// settles synchronously. Card details are never stored.
type cardFlow struct{}

func (cardFlow) begin(ctx context.Context, s *checkoutService, sess *session.Session, params BeginParams) (*BeginResult, error) {
	if !params.hasCardDetails() {
		sess.StageCheckout(&domain.PendingCheckout{
			ShippingAddress: params.ShippingAddress,
			PaymentMethod:   domain.PaymentCard,
		})
		return &BeginResult{Next: NextCardForm}, nil
	}

	settlement, err := s.settle(ctx, sess, params.ShippingAddress, domain.PaymentCard)
	if err != nil {
		return nil, err
	}
	return &BeginResult{Next: NextSettled, Settlement: settlement}, nil
}

// stagedFlow hands off to an async provider leg after staging the attempt.
type stagedFlow struct {
	next NextAction
}

func (f stagedFlow) begin(ctx context.Context, s *checkoutService, sess *session.Session, params BeginParams) (*BeginResult, error) {
	sess.StageCheckout(&domain.PendingCheckout{
		ShippingAddress: params.ShippingAddress,
		PaymentMethod:   domain.ParsePaymentMethod(params.PaymentMethod),
	})
	return &BeginResult{Next: f.next}, nil
}

// =============================================================================
// PROVIDER LEGS
// =============================================================================

// CreatePayPalOrder creates the remote order for the staged checkout.
func (s *checkoutService) CreatePayPalOrder(ctx context.Context, sess *session.Session, octx paypal.OrderContext) (*paypal.Order, error) {
	cart := sess.Cart()
	if cart.IsEmpty() {
		return nil, domain.ErrCartEmpty
	}

	order, err := s.paypal.CreateOrder(ctx, cart.Totals.Total, "SGD", octx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("paypal order created", "remote_order_id", order.ID)
	return order, nil
}

// FinalizePayPal captures the remote order and settles on COMPLETED only.
func (s *checkoutService) FinalizePayPal(ctx context.Context, sess *session.Session, remoteOrderID string) (*Settlement, error) {
	pending := sess.PendingCheckout()
	if pending == nil {
		return nil, domain.ErrMissingShipping
	}

	capture, err := s.paypal.CaptureOrder(ctx, remoteOrderID)
	if err != nil {
		return nil, err
	}
	if !capture.Completed() {
		s.logger.Warn("paypal capture not completed",
			"remote_order_id", remoteOrderID,
			"status", capture.Status)
		return nil, &domain.Error{
			Code:    domain.EPAYMENT,
			Op:      "checkout.paypal",
			Message: "Payment was not completed",
		}
	}

	return s.settle(ctx, sess, pending.ShippingAddress, domain.PaymentPayPal)
}

// GenerateNetsQR requests a QR code and stages the payment session.
func (s *checkoutService) GenerateNetsQR(ctx context.Context, sess *session.Session) (*nets.QR, error) {
	cart := sess.Cart()
	if cart.IsEmpty() {
		return nil, domain.ErrCartEmpty
	}

	qr, err := s.nets.RequestQR(ctx, cart.Totals.Total.StringFixed(2))
	if err != nil {
		return nil, err
	}

	sess.SetNetsPayment(&domain.NetsPaymentSession{
		RetrievalRef: qr.RetrievalRef,
		TxnID:        qr.TxnID,
		QRID:         qr.QRID,
	})

	s.logger.Info("nets qr generated", "retrieval_ref", qr.RetrievalRef)
	return qr, nil
}

// FinalizeNets settles the staged QR attempt at most once.
func (s *checkoutService) FinalizeNets(ctx context.Context, sess *session.Session) (*Settlement, error) {
	// Reloading the success page after the stream already finalized must
	// not create a second order.
	if done := sess.NetsCompleted(); done != nil {
		return &Settlement{
			Order:       &domain.Order{ID: done.OrderID},
			OrderNumber: done.OrderNumber,
		}, nil
	}

	pending := sess.PendingCheckout()
	if pending == nil {
		return nil, domain.ErrMissingShipping
	}

	settlement, err := s.settle(ctx, sess, pending.ShippingAddress, domain.PaymentNets)
	if err != nil {
		return nil, err
	}

	sess.MarkNetsCompleted(&domain.NetsOrderCompleted{
		OrderID:     settlement.Order.ID,
		OrderNumber: settlement.OrderNumber,
	})

	return settlement, nil
}

// =============================================================================
// SETTLEMENT
// =============================================================================

// settle finalizes a checkout attempt: decrement stock, deduct any stored
// balance, persist the order snapshot, clear the cart and staged attempt,
// and publish the settlement event. Shared by every payment flow.
func (s *checkoutService) settle(ctx context.Context, sess *session.Session, shipping string, method domain.PaymentMethod) (*Settlement, error) {
	user := sess.User()
	if user == nil {
		return nil, domain.Unauthorized("checkout.settle", "Please sign in to check out")
	}

	cart := sess.Cart()
	if cart.IsEmpty() {
		return nil, domain.ErrCartEmpty
	}
	cart.Recompute()

	items := make([]domain.StockRequest, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		items = append(items, domain.StockRequest{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	if err := s.products.EnsureStock(ctx, items); err != nil {
		return nil, err
	}
	if err := s.products.DecrementStock(ctx, items); err != nil {
		return nil, err
	}

	// Known quirk: the stored-balance guard runs after the decrement, so an
	// insufficient balance at this point leaves the stock already reduced.
	if method == domain.PaymentWallet {
		if err := s.users.DeductWalletBalance(ctx, user.ID, cart.Totals.Total); err != nil {
			return nil, err
		}
		// Keep the session's balance in step with the deduction.
		if fresh, err := s.users.FindByID(ctx, user.ID); err == nil {
			sess.SetUser(fresh)
		} else {
			s.logger.Warn("failed to refresh session user after wallet deduction",
				"user_id", user.ID, "error", err)
		}
	}

	prior, err := s.orders.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count prior orders: %w", err)
	}
	orderNumber := prior + 1

	orderItems := make([]domain.OrderItem, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		orderItems = append(orderItems, domain.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
			Image:     line.Image,
		})
	}

	order, err := s.orders.Create(ctx, domain.OrderInput{
		UserID:          user.ID,
		Items:           orderItems,
		Subtotal:        cart.Totals.Subtotal,
		Tax:             cart.Totals.Tax,
		Total:           cart.Totals.Total,
		ShippingAddress: shipping,
		PaymentMethod:   method,
		Status:          domain.StatusForMethod(method),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	sess.ClearCart()
	sess.ClearCheckout()

	if err := s.events.OrderCreated(order, orderNumber); err != nil {
		s.logger.Warn("failed to publish order event", "order_id", order.ID, "error", err)
	}

	s.logger.Info("order settled",
		"order_id", order.ID,
		"order_number", orderNumber,
		"user_id", user.ID,
		"method", method,
		"total", order.Total.StringFixed(2))

	return &Settlement{Order: order, OrderNumber: orderNumber}, nil
}
