package api

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/change-order-api/api/metrics"
)

// slowRequest is the duration past which a request is logged
const slowRequest = time.Second

// MetricsMiddleware records request duration per route template
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		wrappedWriter := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(wrappedWriter, r)

		// websocket sessions live for the whole connection, their duration is meaningless here
		if wrappedWriter.hijacked {
			return
		}

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		duration := time.Since(startTime)
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(wrappedWriter.statusCode)).
			Observe(duration.Seconds())

		if duration > slowRequest {
			zap.S().Warnw("Slow request detected",
				"method", r.Method,
				"route", route,
				"duration", duration,
				"status", wrappedWriter.statusCode,
			)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
// It implements http.Hijacker to support WebSocket upgrades
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	hijacked   bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker to support WebSocket upgrades
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		rw.hijacked = true
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}
