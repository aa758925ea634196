package routes

import (
	"net/http"

	"github.com/rhobart/minimart/internal/handler/admin"
	"github.com/rhobart/minimart/internal/handler/storefront"
)

// StorefrontDeps contains dependencies for customer-facing routes.
type StorefrontDeps struct {
	// Catalog
	ProductHandler *storefront.ProductHandler

	// Cart
	CartHandler *storefront.CartHandler

	// Auth and profile
	AuthHandler *storefront.AuthHandler

	// Checkout entry and card second step
	CheckoutHandler *storefront.CheckoutHandler

	// Asynchronous payment surfaces
	PayPalHandler *storefront.PayPalHandler
	NetsHandler   *storefront.NetsHandler

	// Order history
	OrderHandler *storefront.OrderHandler

	// Wishlist
	WishlistHandler *storefront.WishlistHandler
}

// AdminDeps contains dependencies for the admin surface.
type AdminDeps struct {
	ProductHandler *admin.ProductHandler
	OrderHandler   *admin.OrderHandler
	UserHandler    *admin.UserHandler
}

// OpsDeps contains dependencies for operational endpoints.
type OpsDeps struct {
	MetricsHandler http.Handler
}
