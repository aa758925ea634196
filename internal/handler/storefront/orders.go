package storefront

import (
	"net/http"

	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/handler"
)

// OrderHandler shows a customer their own order history.
type OrderHandler struct {
	orders   domain.OrderStore
	renderer *handler.Renderer
}

// NewOrderHandler creates a new order history handler.
func NewOrderHandler(orders domain.OrderStore, renderer *handler.Renderer) *OrderHandler {
	return &OrderHandler{orders: orders, renderer: renderer}
}

// orderView pairs an order with its per-user display number.
type orderView struct {
	domain.Order
	Number int64
}

// History handles GET /orders/history. Orders are listed newest first, with
// the display number counting down from the user's total.
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	orders, err := h.orders.FindByUser(r.Context(), sess.User().ID)
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/shop")
		return
	}

	views := make([]orderView, len(orders))
	for i, o := range orders {
		views[i] = orderView{Order: o, Number: int64(len(orders) - i)}
	}

	data := BaseTemplateData(r)
	data["Orders"] = views
	h.renderer.RenderHTTP(w, "orders", data)
}
