package storefront

import (
	"net/http"
	"strconv"

	"github.com/rhobart/minimart/internal/handler"
	"github.com/rhobart/minimart/internal/service"
	"github.com/rhobart/minimart/internal/session"
)

// CartHandler handles all cart-related storefront routes
type CartHandler struct {
	cartService service.CartService
	renderer    *handler.Renderer
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService service.CartService, renderer *handler.Renderer) *CartHandler {
	return &CartHandler{cartService: cartService, renderer: renderer}
}

// View handles GET /cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	if err := h.cartService.Annotate(r.Context(), sess); err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/shop")
		return
	}

	data := BaseTemplateData(r)
	data["Cart"] = sess.Cart()
	h.renderer.RenderHTTP(w, "cart", data)
}

// Add handles POST /cart/add/{id}
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	productID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product id", http.StatusBadRequest)
		return
	}
	quantity := formQuantity(r, 1)

	if err := h.cartService.AddItem(r.Context(), sess, productID, quantity); err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/shop")
		return
	}

	sess.Flash(session.SeveritySuccess, "Added to cart.")
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

// Update handles POST /cart/update/{id}
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	productID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product id", http.StatusBadRequest)
		return
	}
	quantity := formQuantity(r, 0)

	if err := h.cartService.UpdateItem(r.Context(), sess, productID, quantity); err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/cart")
		return
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

// Remove handles POST /cart/remove/{id}
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	productID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product id", http.StatusBadRequest)
		return
	}

	if err := h.cartService.RemoveItem(r.Context(), sess, productID); err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/cart")
		return
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

// Clear handles POST /cart/clear
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	h.cartService.Clear(r.Context(), sess)
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

// formQuantity reads the quantity form field, falling back when absent or
// unparseable.
func formQuantity(r *http.Request, fallback int32) int32 {
	raw := r.FormValue("quantity")
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return fallback
	}
	return int32(n)
}
