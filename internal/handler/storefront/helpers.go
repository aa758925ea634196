// Package storefront contains the customer-facing HTTP handlers.
package storefront

import (
	"net/http"
	"time"

	"github.com/rhobart/minimart/internal/middleware"
	"github.com/rhobart/minimart/internal/session"
)

// BaseTemplateData returns common data for all templates: the signed-in
// user, the cart item count and the drained flash messages.
func BaseTemplateData(r *http.Request) map[string]interface{} {
	data := map[string]interface{}{
		"Year": time.Now().Year(),
	}

	sess := middleware.GetSession(r.Context())
	if sess == nil {
		return data
	}

	if user := sess.User(); user != nil {
		data["User"] = user
	}
	data["CartCount"] = sess.Cart().ItemCount()
	data["Flashes"] = sess.DrainFlashes()

	return data
}

// currentSession is a shorthand for the request's session.
func currentSession(r *http.Request) *session.Session {
	return middleware.GetSession(r.Context())
}
