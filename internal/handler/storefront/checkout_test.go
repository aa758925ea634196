package storefront_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/events"
	"github.com/rhobart/minimart/internal/handler"
	"github.com/rhobart/minimart/internal/handler/storefront"
	"github.com/rhobart/minimart/internal/memory"
	"github.com/rhobart/minimart/internal/middleware"
	"github.com/rhobart/minimart/internal/payment/nets"
	"github.com/rhobart/minimart/internal/payment/paypal"
	"github.com/rhobart/minimart/internal/service"
	"github.com/rhobart/minimart/internal/session"
)

type checkoutWebFixture struct {
	products *memory.ProductStore
	nets     *nets.MockProvider
	sess     *session.Session
	checkout service.CheckoutService
	renderer *handler.Renderer
}

func newCheckoutWebFixture(t *testing.T) *checkoutWebFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	products := memory.NewProductStore()
	products.Seed(domain.Product{
		ID: 1, Name: "Kopi Beans", Price: decimal.RequireFromString("3.49"), Category: "pantry", Quantity: 5,
	})
	users := memory.NewUserStore()
	users.Seed(domain.User{ID: 7, Username: "mei", Email: "mei@example.com", Role: domain.RoleUser})

	sess := &session.Session{}
	user, err := users.FindByID(context.Background(), 7)
	require.NoError(t, err)
	sess.SetUser(user)

	netsMock := nets.NewMockProvider()
	checkout := service.NewCheckoutService(
		products, memory.NewOrderStore(), users,
		paypal.NewMockProvider(), netsMock, events.NopPublisher{}, logger,
	)

	renderer, err := handler.NewRenderer("../../../web/templates")
	require.NoError(t, err)

	return &checkoutWebFixture{
		products: products,
		nets:     netsMock,
		sess:     sess,
		checkout: checkout,
		renderer: renderer,
	}
}

func (fx *checkoutWebFixture) serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ctx := context.WithValue(r.Context(), middleware.SessionContextKey, fx.sess)
	h(rec, r.WithContext(ctx))
	return rec
}

func (fx *checkoutWebFixture) addToCart(t *testing.T, productID int64, qty int32) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cartSvc := service.NewCartService(fx.products, logger)
	require.NoError(t, cartSvc.AddItem(context.Background(), fx.sess, productID, qty))
}

func TestProcessEmptyCartRedirectsToShop(t *testing.T) {
	fx := newCheckoutWebFixture(t)
	h := storefront.NewCheckoutHandler(fx.checkout, nil, fx.renderer)

	form := url.Values{
		"addressLine1":  {"1 Marina Way"},
		"city":          {"Singapore"},
		"postalCode":    {"018989"},
		"paymentMethod": {"cash"},
	}
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := fx.serve(h.Process, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shop", rec.Header().Get("Location"))

	flashes := fx.sess.DrainFlashes()
	require.NotEmpty(t, flashes)
	assert.Equal(t, session.SeverityError, flashes[0].Severity)
}

func TestShowQRFailureRendersPaymentFailedPage(t *testing.T) {
	fx := newCheckoutWebFixture(t)
	fx.addToCart(t, 1, 1)
	fx.sess.StageCheckout(&domain.PendingCheckout{
		ShippingAddress: "1 Marina Way",
		PaymentMethod:   domain.PaymentNets,
	})
	fx.nets.RequestQRFunc = func(ctx context.Context, amountInDollars string) (*nets.QR, error) {
		return nil, &domain.Error{Code: domain.EPAYMENT, Message: "QR code generation was unsuccessful"}
	}

	h := storefront.NewNetsHandler(fx.checkout, fx.nets, nil, fx.renderer)
	rec := fx.serve(h.ShowQR, httptest.NewRequest(http.MethodGet, "/checkout/nets", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Payment unsuccessful")
	assert.Contains(t, rec.Body.String(), "QR code generation was unsuccessful")

	// The cart survives for a retry with another method.
	assert.False(t, fx.sess.Cart().IsEmpty())
}
