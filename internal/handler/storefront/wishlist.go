package storefront

import (
	"net/http"
	"strconv"

	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/handler"
	"github.com/rhobart/minimart/internal/session"
)

// WishlistHandler manages a user's saved products.
type WishlistHandler struct {
	wishlists domain.WishlistStore
	renderer  *handler.Renderer
}

// NewWishlistHandler creates a new wishlist handler.
func NewWishlistHandler(wishlists domain.WishlistStore, renderer *handler.Renderer) *WishlistHandler {
	return &WishlistHandler{wishlists: wishlists, renderer: renderer}
}

// View handles GET /wishlist
func (h *WishlistHandler) View(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	items, err := h.wishlists.ListByUser(r.Context(), sess.User().ID)
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/shop")
		return
	}

	data := BaseTemplateData(r)
	data["Items"] = items
	h.renderer.RenderHTTP(w, "wishlist", data)
}

// Add handles POST /wishlist/add/{id}
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	productID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, domain.ErrProductNotFound, "/shop")
		return
	}

	if err := h.wishlists.Add(r.Context(), sess.User().ID, productID); err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/shop")
		return
	}
	sess.Flash(session.SeveritySuccess, "Added to wishlist.")
	http.Redirect(w, r, redirectTarget(r, "/wishlist"), http.StatusSeeOther)
}

// Remove handles POST /wishlist/remove/{id}
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	productID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, domain.ErrProductNotFound, "/wishlist")
		return
	}

	if err := h.wishlists.Remove(r.Context(), sess.User().ID, productID); err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/wishlist")
		return
	}
	http.Redirect(w, r, "/wishlist", http.StatusSeeOther)
}

// redirectTarget returns the form-supplied redirect when it is a safe local
// path, falling back otherwise.
func redirectTarget(r *http.Request, fallback string) string {
	if t := r.FormValue("redirect"); len(t) > 1 && t[0] == '/' && t[1] != '/' {
		return t
	}
	return fallback
}
