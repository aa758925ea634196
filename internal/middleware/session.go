package middleware

import (
	"context"
	"net/http"

	"github.com/rhobart/minimart/internal/session"
)

const (
	// SessionContextKey is the context key for the request's session
	SessionContextKey contextKey = "session"
)

// WithSession resolves (or creates) the browser session and stores it in the
// request context. Every storefront route runs behind it.
func WithSession(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := manager.Get(w, r)
			ctx := context.WithValue(r.Context(), SessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession retrieves the session from the context. It is nil only on
// routes that do not run behind WithSession.
func GetSession(ctx context.Context) *session.Session {
	if sess, ok := ctx.Value(SessionContextKey).(*session.Session); ok {
		return sess
	}
	return nil
}

// RequireAuth redirects anonymous visitors to the login page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := GetSession(r.Context())
		if sess == nil || sess.User() == nil {
			if sess != nil {
				sess.Flash(session.SeverityError, "Please log in to continue.")
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin allows only signed-in admins through; everyone else is sent
// back to the shop.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := GetSession(r.Context())
		if sess == nil || sess.User() == nil {
			if sess != nil {
				sess.Flash(session.SeverityError, "Please log in to continue.")
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !sess.User().IsAdmin() {
			sess.Flash(session.SeverityError, "You are not allowed to view that page.")
			http.Redirect(w, r, "/shop", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
