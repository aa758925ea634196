package storefront

import (
	"encoding/json"
	"net/http"

	"github.com/rhobart/minimart/internal/handler"
	"github.com/rhobart/minimart/internal/middleware"
	"github.com/rhobart/minimart/internal/payment/paypal"
	"github.com/rhobart/minimart/internal/service"
	"github.com/rhobart/minimart/internal/session"
)

// PayPalHandler serves the redirect-based checkout step. The page hosts the
// provider's button widget, which talks to the two JSON endpoints below.
type PayPalHandler struct {
	checkout service.CheckoutService
	clientID string
	baseURL  string
	metrics  *middleware.Metrics
	renderer *handler.Renderer
}

// NewPayPalHandler creates a new PayPal checkout handler.
func NewPayPalHandler(checkout service.CheckoutService, clientID, baseURL string, metrics *middleware.Metrics, renderer *handler.Renderer) *PayPalHandler {
	return &PayPalHandler{checkout: checkout, clientID: clientID, baseURL: baseURL, metrics: metrics, renderer: renderer}
}

// Show handles GET /checkout/paypal
func (h *PayPalHandler) Show(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if sess.PendingCheckout() == nil || sess.Cart().IsEmpty() {
		sess.Flash(session.SeverityError, "Your checkout session has expired. Please try again.")
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}

	data := BaseTemplateData(r)
	data["Cart"] = sess.Cart()
	data["ClientID"] = h.clientID
	h.renderer.RenderHTTP(w, "checkout-paypal", data)
}

// CreateOrder handles POST /checkout/paypal/create-order. It returns the
// provider order id the button widget needs to open the approval window.
func (h *PayPalHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	octx := paypal.OrderContext{
		ReturnURL: h.baseURL + "/checkout/paypal",
		CancelURL: h.baseURL + "/cart",
	}
	order, err := h.checkout.CreatePayPalOrder(r.Context(), sess, octx)
	if err != nil {
		handler.JSONError(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, map[string]string{"id": order.ID})
}

// CaptureOrder handles POST /checkout/paypal/capture-order. A COMPLETED
// capture settles the checkout; anything else leaves the cart intact.
func (h *PayPalHandler) CaptureOrder(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	var body struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.OrderID == "" {
		handler.JSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]string{"code": "EINVALID", "message": "Missing PayPal order id"},
		})
		return
	}

	settlement, err := h.checkout.FinalizePayPal(r.Context(), sess, body.OrderID)
	if err != nil {
		handler.JSONError(w, r, err)
		return
	}

	h.metrics.OrderCreated(string(settlement.Order.PaymentMethod))
	sess.Flash(session.SeveritySuccess, "Order placed successfully via PayPal!")
	handler.JSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"orderNumber": settlement.OrderNumber,
	})
}
