package admin

import (
	"net/http"
	"strconv"

	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/handler"
	"github.com/rhobart/minimart/internal/session"
)

// OrderHandler serves the admin order dashboard.
type OrderHandler struct {
	orders   domain.OrderStore
	renderer *handler.Renderer
}

// NewOrderHandler creates a new admin order handler.
func NewOrderHandler(orders domain.OrderStore, renderer *handler.Renderer) *OrderHandler {
	return &OrderHandler{orders: orders, renderer: renderer}
}

// Dashboard handles GET /admin/orders
func (h *OrderHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	orders, err := h.orders.FindAll(r.Context())
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/admin/orders")
		return
	}

	data := BaseTemplateData(r)
	data["Orders"] = orders
	data["Statuses"] = []domain.OrderStatus{
		domain.OrderStatusPaid,
		domain.OrderStatusCashOnDelivery,
		domain.OrderStatusFulfilled,
		domain.OrderStatusCancelled,
	}
	h.renderer.RenderHTTP(w, "admin/orders", data)
}

// UpdateStatus handles POST /admin/orders/{id}/status. Status values outside
// the fixed enumeration are rejected before touching the store.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, domain.ErrOrderNotFound, "/admin/orders")
		return
	}

	status := r.FormValue("status")
	if !domain.ValidOrderStatus(status) {
		sess.Flash(session.SeverityError, "Invalid order status.")
		http.Redirect(w, r, "/admin/orders", http.StatusSeeOther)
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), id, domain.OrderStatus(status)); err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/admin/orders")
		return
	}
	sess.Flash(session.SeveritySuccess, "Order status updated.")
	http.Redirect(w, r, "/admin/orders", http.StatusSeeOther)
}
