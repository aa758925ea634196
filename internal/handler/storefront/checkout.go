package storefront

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/handler"
	"github.com/rhobart/minimart/internal/middleware"
	"github.com/rhobart/minimart/internal/service"
	"github.com/rhobart/minimart/internal/session"
)

// CheckoutHandler drives the checkout flow: the shipping/payment form, the
// card second step, and dispatch to the asynchronous payment surfaces.
type CheckoutHandler struct {
	checkout service.CheckoutService
	metrics  *middleware.Metrics
	renderer *handler.Renderer
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(checkout service.CheckoutService, metrics *middleware.Metrics, renderer *handler.Renderer) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, metrics: metrics, renderer: renderer}
}

// shippingForm holds the address fields collected on the checkout page.
type shippingForm struct {
	AddressLine1 string `validate:"required"`
	AddressLine2 string
	City         string `validate:"required"`
	PostalCode   string `validate:"required"`
}

// joined assembles the single-line shipping address stored on the order.
func (f shippingForm) joined() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{f.AddressLine1, f.AddressLine2, f.City, f.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Show handles GET /checkout
func (h *CheckoutHandler) Show(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	cart := sess.Cart()
	if cart.IsEmpty() {
		sess.Flash(session.SeverityError, "Your cart is empty.")
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}

	data := BaseTemplateData(r)
	data["Cart"] = cart
	h.renderer.RenderHTTP(w, "checkout", data)
}

// Process handles POST /checkout. Depending on the chosen payment method it
// either settles immediately or hands off to a second step.
func (h *CheckoutHandler) Process(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	form := shippingForm{
		AddressLine1: r.FormValue("addressLine1"),
		AddressLine2: r.FormValue("addressLine2"),
		City:         r.FormValue("city"),
		PostalCode:   r.FormValue("postalCode"),
	}

	params := service.BeginParams{
		PaymentMethod: r.FormValue("paymentMethod"),
		CardNumber:    r.FormValue("cardNumber"),
		CardExpiry:    r.FormValue("cardExpiry"),
		CardCVC:       r.FormValue("cardCVC"),
	}

	// The card second step posts back without address fields; the staged
	// checkout supplies the shipping address in that case.
	if form.AddressLine1 != "" || form.City != "" || form.PostalCode != "" {
		if err := handler.Validate.Struct(form); err != nil {
			sess.Flash(session.SeverityError, "Please complete your shipping information.")
			http.Redirect(w, r, "/checkout", http.StatusSeeOther)
			return
		}
		params.ShippingAddress = form.joined()
	}

	result, err := h.checkout.Begin(r.Context(), sess, params)
	if err != nil {
		h.settlementError(err)
		// An empty cart would bounce off /checkout again; send the shopper
		// back to the catalog instead.
		if errors.Is(err, domain.ErrCartEmpty) {
			handler.FlashAndRedirect(w, r, sess, err, "/shop")
			return
		}
		handler.FlashAndRedirect(w, r, sess, err, "/checkout")
		return
	}

	switch result.Next {
	case service.NextSettled:
		h.metrics.OrderCreated(string(result.Settlement.Order.PaymentMethod))
		sess.Flash(session.SeveritySuccess, fmt.Sprintf("Order #%d placed successfully!", result.Settlement.OrderNumber))
		http.Redirect(w, r, "/orders/history", http.StatusSeeOther)

	case service.NextCardForm:
		data := BaseTemplateData(r)
		data["Cart"] = sess.Cart()
		data["ShippingAddress"] = sess.PendingCheckout().ShippingAddress
		h.renderer.RenderHTTP(w, "checkout-card", data)

	case service.NextPayPalRedirect:
		http.Redirect(w, r, "/checkout/paypal", http.StatusSeeOther)

	case service.NextNetsQR:
		http.Redirect(w, r, "/checkout/nets", http.StatusSeeOther)

	default:
		http.Redirect(w, r, "/checkout", http.StatusSeeOther)
	}
}

func (h *CheckoutHandler) settlementError(err error) {
	if h.metrics != nil {
		h.metrics.SettlementFailed(domain.ErrorCode(err))
	}
}
