// Package metrics exposes Prometheus collectors for the HTTP layer and the
// facility operations.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "locator",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "locator",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	searchResults = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "locator",
		Name:      "search_results",
		Help:      "Facilities returned per listing.",
		Buckets:   []float64{0, 1, 2, 5, 10},
	}, []string{"surface"})

	commentUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "locator",
		Name:      "comment_updates_total",
		Help:      "Status comment updates by outcome.",
	}, []string{"outcome"})

	adminWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "locator",
		Name:      "admin_writes_total",
		Help:      "Admin facility writes by action and outcome.",
	}, []string{"action", "outcome"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency keyed by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// ObserveSearch records how many facilities a listing surface returned.
func ObserveSearch(surface string, n int) {
	searchResults.WithLabelValues(surface).Observe(float64(n))
}

// CommentUpdate counts a comment update outcome.
func CommentUpdate(outcome string) {
	commentUpdates.WithLabelValues(outcome).Inc()
}

// AdminWrite counts an admin create, update or delete.
func AdminWrite(action, outcome string) {
	adminWrites.WithLabelValues(action, outcome).Inc()
}
