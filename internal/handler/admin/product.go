package admin

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/rhobart/minimart/internal/domain"
	"github.com/rhobart/minimart/internal/handler"
	"github.com/rhobart/minimart/internal/session"
)

// ProductHandler manages the catalog from the admin surface.
type ProductHandler struct {
	products domain.ProductStore
	renderer *handler.Renderer
}

// NewProductHandler creates a new admin product handler.
func NewProductHandler(products domain.ProductStore, renderer *handler.Renderer) *ProductHandler {
	return &ProductHandler{products: products, renderer: renderer}
}

// productForm is the admin product create/update payload.
type productForm struct {
	Name     string `validate:"required"`
	Price    string `validate:"required"`
	Category string `validate:"required"`
	Image    string
	Quantity string `validate:"required"`
}

// parse converts the raw form into a store input, validating the numeric
// fields along the way.
func (f productForm) parse() (domain.ProductInput, error) {
	price, err := decimal.NewFromString(f.Price)
	if err != nil || price.IsNegative() {
		return domain.ProductInput{}, &domain.Error{Code: domain.EINVALID, Message: "Price must be a non-negative number"}
	}
	qty, err := strconv.ParseInt(f.Quantity, 10, 32)
	if err != nil || qty < 0 {
		return domain.ProductInput{}, &domain.Error{Code: domain.EINVALID, Message: "Quantity must be a non-negative whole number"}
	}
	return domain.ProductInput{
		Name:     f.Name,
		Price:    price,
		Category: f.Category,
		Image:    f.Image,
		Quantity: int32(qty),
	}, nil
}

func productFormFrom(r *http.Request) productForm {
	return productForm{
		Name:     r.FormValue("name"),
		Price:    r.FormValue("price"),
		Category: r.FormValue("category"),
		Image:    r.FormValue("image"),
		Quantity: r.FormValue("quantity"),
	}
}

// Inventory handles GET /admin/inventory
func (h *ProductHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	products, err := h.products.List(r.Context(), domain.ProductFilter{})
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/admin/inventory")
		return
	}

	data := BaseTemplateData(r)
	data["Products"] = products
	h.renderer.RenderHTTP(w, "admin/inventory", data)
}

// Create handles POST /admin/inventory
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	form := productFormFrom(r)
	if err := handler.Validate.Struct(form); err != nil {
		sess.Flash(session.SeverityError, handler.ValidationMessage(err))
		http.Redirect(w, r, "/admin/inventory", http.StatusSeeOther)
		return
	}
	input, err := form.parse()
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/admin/inventory")
		return
	}

	if _, err := h.products.Create(r.Context(), input); err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/admin/inventory")
		return
	}
	sess.Flash(session.SeveritySuccess, "Product added.")
	http.Redirect(w, r, "/admin/inventory", http.StatusSeeOther)
}

// Update handles POST /admin/inventory/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, domain.ErrProductNotFound, "/admin/inventory")
		return
	}

	form := productFormFrom(r)
	if err := handler.Validate.Struct(form); err != nil {
		sess.Flash(session.SeverityError, handler.ValidationMessage(err))
		http.Redirect(w, r, "/admin/inventory", http.StatusSeeOther)
		return
	}
	input, err := form.parse()
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/admin/inventory")
		return
	}

	if err := h.products.Update(r.Context(), id, input); err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/admin/inventory")
		return
	}
	sess.Flash(session.SeveritySuccess, "Product updated.")
	http.Redirect(w, r, "/admin/inventory", http.StatusSeeOther)
}

// Delete handles POST /admin/inventory/{id}/delete
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		handler.FlashAndRedirect(w, r, sess, domain.ErrProductNotFound, "/admin/inventory")
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		handler.FlashAndRedirect(w, r, sess, err, "/admin/inventory")
		return
	}
	sess.Flash(session.SeveritySuccess, "Product removed.")
	http.Redirect(w, r, "/admin/inventory", http.StatusSeeOther)
}
