package routes

import (
	"github.com/rhobart/minimart/internal/middleware"
	"github.com/rhobart/minimart/internal/router"
)

// RegisterStorefrontRoutes registers all customer-facing routes. Everything
// except the payment status stream runs under the request timeout; the
// stream stays open for the whole QR polling window.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	timed := r.Group(middleware.Timeout(middleware.DefaultTimeout))

	// Catalog
	timed.Get("/", deps.ProductHandler.Home)
	timed.Get("/shop", deps.ProductHandler.Shop)
	timed.Get("/product/{id}", deps.ProductHandler.Detail)

	// Shopping cart
	timed.Get("/cart", deps.CartHandler.View)
	timed.Post("/cart/add/{id}", deps.CartHandler.Add)
	timed.Post("/cart/update/{id}", deps.CartHandler.Update)
	timed.Post("/cart/remove/{id}", deps.CartHandler.Remove)
	timed.Post("/cart/clear", deps.CartHandler.Clear)

	// Authentication
	timed.Get("/register", deps.AuthHandler.ShowRegister)
	timed.Post("/register", deps.AuthHandler.Register)
	timed.Get("/login", deps.AuthHandler.ShowLogin)
	timed.Post("/login", deps.AuthHandler.Login)
	timed.Get("/logout", deps.AuthHandler.Logout)

	// Routes below require a signed-in user.
	account := timed.Group(middleware.RequireAuth)

	account.Get("/profile", deps.AuthHandler.ShowProfile)
	account.Post("/profile", deps.AuthHandler.UpdateProfile)

	// Checkout entry; a card payment posts back here for its second step.
	account.Get("/checkout", deps.CheckoutHandler.Show)
	account.Post("/checkout", deps.CheckoutHandler.Process)

	// PayPal approval page and its JSON endpoints
	account.Get("/checkout/paypal", deps.PayPalHandler.Show)
	account.Post("/checkout/paypal/create-order", deps.PayPalHandler.CreateOrder)
	account.Post("/checkout/paypal/capture-order", deps.PayPalHandler.CaptureOrder)

	// NETS QR page, live status stream and terminal pages
	account.Get("/checkout/nets", deps.NetsHandler.ShowQR)
	account.Get("/checkout/nets/status", deps.NetsHandler.Status)
	account.Get("/checkout/nets/success", deps.NetsHandler.Success)
	account.Get("/checkout/nets/fail", deps.NetsHandler.Fail)

	// Order history
	account.Get("/orders/history", deps.OrderHandler.History)

	// Wishlist
	account.Get("/wishlist", deps.WishlistHandler.View)
	account.Post("/wishlist/add/{id}", deps.WishlistHandler.Add)
	account.Post("/wishlist/remove/{id}", deps.WishlistHandler.Remove)

	// The live status stream holds its connection open until the payment
	// reaches a terminal state, so it runs outside the request timeout.
	r.Get("/checkout/nets/stream", deps.NetsHandler.Stream, middleware.RequireAuth)
}
