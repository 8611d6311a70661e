package api

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds the request context so store calls made by the
// handler give up after timeout. Not for long-lived routes such as websockets.
// A non-positive timeout disables it.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
