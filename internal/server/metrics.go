package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// QuotesTotal counts quotes by kind and outcome (ok, unpriceable, bad_request).
	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perpdex_quotes_total",
		Help: "Total number of quote requests",
	}, []string{"kind", "outcome"})

	// QuoteLatency tracks calculation time per quote kind.
	QuoteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "perpdex_quote_latency_seconds",
		Help:    "Quote calculation latency in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"kind"})

	// SwapPathHops observes the hop count of routed swaps.
	SwapPathHops = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "perpdex_swap_path_hops",
		Help:    "Number of market hops in routed swap paths",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	})

	// SnapshotMarkets tracks the number of markets in the loaded snapshot.
	SnapshotMarkets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perpdex_snapshot_markets",
		Help: "Number of markets in the current snapshot",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perpdex_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "perpdex_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// MetricsHandler returns the Prometheus metrics HTTP handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// metricsMiddleware records request counts and durations labelled by route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func observeQuote(kind string, start time.Time, outcome string) {
	QuotesTotal.WithLabelValues(kind, outcome).Inc()
	QuoteLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
