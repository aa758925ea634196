package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultTimeout is the default request timeout (30 seconds)
const DefaultTimeout = 30 * time.Second

// Timeout bounds request processing with a context deadline. Handlers that
// respect the request context stop work once it expires. Do not apply it to
// long-lived endpoints such as the payment status stream.
func Timeout(timeout ...time.Duration) func(http.Handler) http.Handler {
	duration := DefaultTimeout
	if len(timeout) > 0 {
		duration = timeout[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
