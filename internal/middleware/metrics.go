package middleware

import (
	"net/http"
	"strconv"
	"time"

	"foldervault/internal/metrics"
)

// unmatchedRoute labels requests no route pattern matched
const unmatchedRoute = "unmatched"

// Metrics records request counts and durations labelled by route pattern.
// It must wrap the ServeMux directly so the mux sets r.Pattern on the same
// request value it sees.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			route := r.Pattern
			if route == "" {
				route = unmatchedRoute
			}

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
