package routes

import (
	"github.com/rhobart/minimart/internal/middleware"
	"github.com/rhobart/minimart/internal/router"
)

// RegisterAdminRoutes registers the admin surface. Every route requires an
// authenticated admin.
func RegisterAdminRoutes(r *router.Router, deps AdminDeps) {
	g := r.Group(middleware.Timeout(middleware.DefaultTimeout), middleware.RequireAuth, middleware.RequireAdmin)

	// Inventory
	g.Get("/admin/inventory", deps.ProductHandler.Inventory)
	g.Post("/admin/inventory", deps.ProductHandler.Create)
	g.Post("/admin/inventory/{id}", deps.ProductHandler.Update)
	g.Post("/admin/inventory/{id}/delete", deps.ProductHandler.Delete)

	// Orders
	g.Get("/admin/orders", deps.OrderHandler.Dashboard)
	g.Post("/admin/orders/{id}/status", deps.OrderHandler.UpdateStatus)

	// Users
	g.Get("/admin/users", deps.UserHandler.List)
	g.Get("/admin/users/{id}", deps.UserHandler.Edit)
	g.Post("/admin/users/{id}", deps.UserHandler.Update)
}

// RegisterOpsRoutes registers operational endpoints.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Handle("GET", "/metrics", deps.MetricsHandler)
}
