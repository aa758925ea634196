package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/events"
	"github.com/rhobart/minimart/internal/memory"
	"github.com/rhobart/minimart/internal/payment/nets"
	"github.com/rhobart/minimart/internal/payment/paypal"
	"github.com/rhobart/minimart/internal/session"
)

type checkoutFixture struct {
	products *memory.ProductStore
	orders   *memory.OrderStore
	users    *memory.UserStore
	paypal   *paypal.MockProvider
	nets     *nets.MockProvider
	svc      CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	f := &checkoutFixture{
		products: memory.NewProductStore(),
		orders:   memory.NewOrderStore(),
		users:    memory.NewUserStore(),
		paypal:   paypal.NewMockProvider(),
		nets:     nets.NewMockProvider(),
	}
	f.products.Seed(
		domain.Product{ID: 1, Name: "Kopi Beans", Price: decimal.RequireFromString("3.49"), Category: "pantry", Quantity: 5},
		domain.Product{ID: 2, Name: "Laksa Paste", Price: decimal.RequireFromString("5.20"), Category: "pantry", Quantity: 1},
	)
	f.users.Seed(domain.User{
		ID:            7,
		Username:      "mei",
		Email:         "mei@example.com",
		Role:          domain.RoleUser,
		WalletBalance: decimal.RequireFromString("100.00"),
	})
	f.svc = NewCheckoutService(f.products, f.orders, f.users, f.paypal, f.nets, events.NopPublisher{}, testLogger())
	return f
}

func (f *checkoutFixture) signedInSession(t *testing.T) *session.Session {
	t.Helper()
	sess := &session.Session{}
	user, err := f.users.FindByID(context.Background(), 7)
	require.NoError(t, err)
	sess.SetUser(user)
	return sess
}

func (f *checkoutFixture) addToCart(t *testing.T, sess *session.Session, productID int64, qty int32) {
	t.Helper()
	cartSvc := NewCartService(f.products, testLogger())
	require.NoError(t, cartSvc.AddItem(context.Background(), sess, productID, qty))
}

func TestBeginRejectsEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	sess := f.signedInSession(t)

	_, err := f.svc.Begin(context.Background(), sess, BeginParams{
		ShippingAddress: "1 Marina Way",
		PaymentMethod:   "cash",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCartEmpty)
	assert.Nil(t, sess.PendingCheckout())

	orders, err := f.orders.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestBeginRejectsMissingShipping(t *testing.T) {
	f := newCheckoutFixture(t)
	sess := f.signedInSession(t)
	f.addToCart(t, sess, 1, 1)

	_, err := f.svc.Begin(context.Background(), sess, BeginParams{PaymentMethod: "cash"})
	assert.ErrorIs(t, err, domain.ErrMissingShipping)
}

func TestBeginReusesStagedShipping(t *testing.T) {
	f := newCheckoutFixture(t)
	sess := f.signedInSession(t)
	f.addToCart(t, sess, 1, 1)
	sess.StageCheckout(&domain.PendingCheckout{ShippingAddress: "1 Marina Way", PaymentMethod: domain.PaymentCard})

	res, err := f.svc.Begin(context.Background(), sess, BeginParams{PaymentMethod: "cash"})
	require.NoError(t, err)
	require.Equal(t, NextSettled, res.Next)
	assert.Equal(t, "1 Marina Way", res.Settlement.Order.ShippingAddress)
}

func TestBeginCashSettlesWithCashOnDeliveryStatus(t *testing.T) {
	f := newCheckoutFixture(t)
	sess := f.signedInSession(t)
	f.addToCart(t, sess, 1, 2)

	res, err := f.svc.Begin(context.Background(), sess, BeginParams{
		ShippingAddress: "1 Marina Way",
		PaymentMethod:   "cash",
	})
	require.NoError(t, err)
	require.Equal(t, NextSettled, res.Next)
	require.NotNil(t, res.Settlement)

	order := res.Settlement.Order
	assert.Equal(t, domain.OrderStatusCashOnDelivery, order.Status)
	assert.Equal(t, "7.54", order.Total.StringFixed(2))
	assert.Equal(t, int64(1), res.Settlement.OrderNumber)
	assert.True(t, sess.Cart().IsEmpty())
	assert.Nil(t, sess.PendingCheckout())

	// Stock was decremented.
	p, err := f.products.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(3), p.Quantity)
}

func TestBeginCardWithoutDetailsStagesSecondStep(t *testing.T) {
	f := newCheckoutFixture(t)
	sess := f.signedInSession(t)
	f.addToCart(t, sess, 1, 1)

	res, err := f.svc.Begin(context.Background(), sess, BeginParams{
		ShippingAddress: "1 Marina Way",
		PaymentMethod:   "card",
	})
	require.NoError(t, err)
	assert.Equal(t, NextCardForm, res.Next)
	assert.Nil(t, res.Settlement)

	pending := sess.PendingCheckout()
	require.NotNil(t, pending)
	assert.Equal(t, domain.PaymentCard, pending.PaymentMethod)

	// No order yet, stock untouched.
	orders, err := f.orders.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
	p, err := f.products.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(5), p.Quantity)
}

func TestBeginCardWithDetailsSettlesPaid(t *testing.T) {
	f := newCheckoutFixture(t)
	sess := f.signedInSession(t)
	f.addToCart(t, sess, 1, 1)

	res, err := f.svc.Begin(context.Background(), sess, BeginParams{
		ShippingAddress: "1 Marina Way",
		PaymentMethod:   "card",
		CardNumber:      "4111111111111111",
		CardExpiry:      "12/30",
		CardCVC:         "123",
	})
	require.NoError(t, err)
	require.Equal(t, NextSettled, res.Next)
	assert.Equal(t, domain.OrderStatusPaid, res.Settlement.Order.Status)
}

func TestBeginUnknownMethodDefaultsToCard(t *testing.T) {
	f := newCheckoutFixture(t)
	sess := f.signedInSession(t)
	f.addToCart(t, sess, 1, 1)

	res, err := f.svc.Begin(context.Background(), sess, BeginParams{
		ShippingAddress: "1 Marina Way",
		PaymentMethod:   "bitcoin",
	})
	require.NoError(t, err)
	assert.Equal(t, NextCardForm, res.Next)
}

func TestBeginStagesAsyncProviders(t *testing.T) {
	for _, method := range []string{"paypal", "nets"} {
		f := newCheckoutFixture(t)
		sess := f.signedInSession(t)
		f.addToCart(t, sess, 1, 1)

		res, err := f.svc.Begin(context.Background(), sess, BeginParams{
			ShippingAddress: "1 Marina Way",
			PaymentMethod:   method,
		})
		require.NoError(t, err, method)
		assert.Nil(t, res.Settlement, method)
		require.NotNil(t, sess.PendingCheckout(), method)

		if method == "paypal" {
			assert.Equal(t, NextPayPalRedirect, res.Next)
		} else {
			assert.Equal(t, NextNetsQR, res.Next)
		}
	}
}

func TestWalletInsufficientBalanceAfterDecrement(t *testing.T) {
	f := newCheckoutFixture(t)
	f.users.Seed(domain.User{
		ID:            8,
		Username:      "tan",
		Email:         "tan@example.com",
		Role:          domain.RoleUser,
		WalletBalance: decimal.RequireFromString("1.00"),
	})

	sess := &session.Session{}
	user, err := f.users.FindByID(context.Background(), 8)
	require.NoError(t, err)
	sess.SetUser(user)
	f.addToCart(t, sess, 1, 2)

	_, err = f.svc.Begin(context.Background(), sess, BeginParams{
		ShippingAddress: "1 Marina Way",
		PaymentMethod:   "wallet",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// No order was created.
	orders, err := f.orders.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)

	// The balance guard runs after the decrement, so the failed attempt
	// leaves stock reduced. Current behavior; do not reorder without a
	// decision on the settlement sequence.
	p, err := f.products.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(3), p.Quantity)
}

func TestBeginStockShortfallReportsShortfallToUser(t *testing.T) {
	f := newCheckoutFixture(t)
	sess := f.signedInSession(t)
	f.addToCart(t, sess, 2, 1)

	// Another buyer takes the last unit between add-to-cart and checkout.
	require.NoError(t, f.products.DecrementStock(context.Background(),
		[]domain.StockRequest{{ProductID: 2, Quantity: 1}}))

	_, err := f.svc.Begin(context.Background(), sess, BeginParams{
		ShippingAddress: "1 Marina Way",
		PaymentMethod:   "cash",
	})
	require.Error(t, err)

	// The shortfall is a recoverable conflict, not a hidden server fault:
	// the customer sees which product ran out.
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Equal(t, "only 0 unit(s) of Laksa Paste left in stock", domain.ErrorMessage(err))

	orders, err := f.orders.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestWalletSettlementDeductsBalance(t *testing.T) {
	f := newCheckoutFixture(t)
	sess := f.signedInSession(t)
	f.addToCart(t, sess, 1, 2)

	res, err := f.svc.Begin(context.Background(), sess, BeginParams{
		ShippingAddress: "1 Marina Way",
		PaymentMethod:   "wallet",
	})
	require.NoError(t, err)
	require.Equal(t, NextSettled, res.Next)

	user, err := f.users.FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "92.46", user.WalletBalance.StringFixed(2))

	// The session user is refreshed so the profile shows the new balance
	// without another lookup.
	assert.Equal(t, "92.46", sess.User().WalletBalance.StringFixed(2))
}

func TestConcurrentCheckoutsLastUnits(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	// Product 1 has 5 units; two buyers each want 3. Exactly one wins.
	makeSession := func(id int64, email string) *session.Session {
		f.users.Seed(domain.User{ID: id, Username: email, Email: email, Role: domain.RoleUser})
		sess := &session.Session{}
		user, err := f.users.FindByID(ctx, id)
		require.NoError(t, err)
		sess.SetUser(user)
		f.addToCart(t, sess, 1, 3)
		return sess
	}
	sessA := makeSession(21, "a@example.com")
	sessB := makeSession(22, "b@example.com")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, sess := range []*session.Session{sessA, sessB} {
		wg.Add(1)
		go func(i int, sess *session.Session) {
			defer wg.Done()
			_, errs[i] = f.svc.Begin(ctx, sess, BeginParams{
				ShippingAddress: "1 Marina Way",
				PaymentMethod:   "cash",
			})
		}(i, sess)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var stockErr *domain.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
	}
	require.Equal(t, 1, succeeded)

	p, err := f.products.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), p.Quantity)

	orders, err := f.orders.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestFinalizePayPalOnlyCompletedSettles(t *testing.T) {
	f := newCheckoutFixture(t)
	sess := f.signedInSession(t)
	f.addToCart(t, sess, 1, 1)

	_, err := f.svc.Begin(context.Background(), sess, BeginParams{
		ShippingAddress: "1 Marina Way",
		PaymentMethod:   "paypal",
	})
	require.NoError(t, err)

	f.paypal.CaptureOrderFunc = func(ctx context.Context, orderID string) (*paypal.CaptureResult, error) {
		return &paypal.CaptureResult{OrderID: orderID, Status: "PENDING"}, nil
	}

	_, err = f.svc.FinalizePayPal(context.Background(), sess, "REMOTE-1")
	require.Error(t, err)
	assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))

	// Cart intact for retry, no order created, stock untouched.
	assert.False(t, sess.Cart().IsEmpty())
	orders, err := f.orders.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
	p, err := f.products.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(5), p.Quantity)
}

func TestFinalizePayPalCompletedSettles(t *testing.T) {
	f := newCheckoutFixture(t)
	sess := f.signedInSession(t)
	f.addToCart(t, sess, 1, 1)

	_, err := f.svc.Begin(context.Background(), sess, BeginParams{
		ShippingAddress: "1 Marina Way",
		PaymentMethod:   "paypal",
	})
	require.NoError(t, err)

	settlement, err := f.svc.FinalizePayPal(context.Background(), sess, "REMOTE-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, settlement.Order.Status)
	assert.Equal(t, domain.PaymentPayPal, settlement.Order.PaymentMethod)
	assert.True(t, sess.Cart().IsEmpty())
}

func TestGenerateNetsQRStagesPaymentSession(t *testing.T) {
	f := newCheckoutFixture(t)
	sess := f.signedInSession(t)
	f.addToCart(t, sess, 1, 1)

	qr, err := f.svc.GenerateNetsQR(context.Background(), sess)
	require.NoError(t, err)
	assert.NotEmpty(t, qr.CodeBase64)

	payment := sess.NetsPayment()
	require.NotNil(t, payment)
	assert.Equal(t, qr.RetrievalRef, payment.RetrievalRef)
	assert.Equal(t, qr.TxnID, payment.TxnID)
	assert.Nil(t, sess.NetsCompleted())
}

func TestFinalizeNetsIsIdempotent(t *testing.T) {
	f := newCheckoutFixture(t)
	sess := f.signedInSession(t)
	f.addToCart(t, sess, 1, 1)

	_, err := f.svc.Begin(context.Background(), sess, BeginParams{
		ShippingAddress: "1 Marina Way",
		PaymentMethod:   "nets",
	})
	require.NoError(t, err)
	_, err = f.svc.GenerateNetsQR(context.Background(), sess)
	require.NoError(t, err)

	first, err := f.svc.FinalizeNets(context.Background(), sess)
	require.NoError(t, err)

	// A success-page reload after the stream finalized must yield the same
	// order, not a second one.
	second, err := f.svc.FinalizeNets(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, first.OrderNumber, second.OrderNumber)

	orders, err := f.orders.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	p, err := f.products.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(4), p.Quantity)
}

func TestOrderNumberIsSequentialPerUser(t *testing.T) {
	f := newCheckoutFixture(t)
	sess := f.signedInSession(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		f.addToCart(t, sess, 1, 1)
		res, err := f.svc.Begin(ctx, sess, BeginParams{
			ShippingAddress: "1 Marina Way",
			PaymentMethod:   "cash",
		})
		require.NoError(t, err)
		assert.Equal(t, want, res.Settlement.OrderNumber)
	}
}

func TestSettleRequiresSignedInUser(t *testing.T) {
	f := newCheckoutFixture(t)
	sess := &session.Session{}
	f.addToCart(t, sess, 1, 1)

	_, err := f.svc.Begin(context.Background(), sess, BeginParams{
		ShippingAddress: "1 Marina Way",
		PaymentMethod:   "cash",
	})
	require.Error(t, err)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}
