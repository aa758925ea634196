package storefront

import (
	"net/http"
	"strconv"

	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/handler"
)

// ProductHandler serves the catalog pages.
type ProductHandler struct {
	products domain.ProductStore
	renderer *handler.Renderer
}

// NewProductHandler creates a new catalog handler.
func NewProductHandler(products domain.ProductStore, renderer *handler.Renderer) *ProductHandler {
	return &ProductHandler{products: products, renderer: renderer}
}

// Home handles GET /
func (h *ProductHandler) Home(w http.ResponseWriter, r *http.Request) {
	data := BaseTemplateData(r)
	h.renderer.RenderHTTP(w, "home", data)
}

// Shop handles GET /shop
func (h *ProductHandler) Shop(w http.ResponseWriter, r *http.Request) {
	filter := domain.ProductFilter{Category: r.URL.Query().Get("category")}

	products, err := h.products.List(r.Context(), filter)
	if err != nil {
		handler.FlashAndRedirect(w, r, currentSession(r), err, "/")
		return
	}

	data := BaseTemplateData(r)
	data["Products"] = products
	data["Category"] = filter.Category
	h.renderer.RenderHTTP(w, "shop", data)
}

// Detail handles GET /product/{id}
func (h *ProductHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		handler.FlashAndRedirect(w, r, currentSession(r), domain.ErrProductNotFound, "/shop")
		return
	}

	product, err := h.products.FindByID(r.Context(), id)
	if err != nil {
		handler.FlashAndRedirect(w, r, currentSession(r), err, "/shop")
		return
	}

	data := BaseTemplateData(r)
	data["Product"] = product
	h.renderer.RenderHTTP(w, "product", data)
}
