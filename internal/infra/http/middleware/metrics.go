package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xavierca1/leadcapture/internal/entity"
	"github.com/xavierca1/leadcapture/internal/infra/worker"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	leadsCaptured = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_captured_total",
			Help: "Terminal pipeline outcomes per channel",
		},
		[]string{"channel", "outcome"},
	)

	extractionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_requests_total",
			Help: "Extraction provider attempts by result",
		},
		[]string{"provider", "result"},
	)

	pollRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_runs_total",
			Help: "Poller iterations by result",
		},
		[]string{"poller", "result"},
	)

	pollEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_events_fetched_total",
			Help: "Events fetched by pollers",
		},
		[]string{"poller"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		path := routePattern(r)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern keeps label cardinality bounded to the registered routes.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Recorder exports pipeline, extraction and poller activity.
type Recorder struct{}

func (Recorder) ObserveOutcome(channel entity.Channel, status entity.AutomationStatus) {
	leadsCaptured.WithLabelValues(string(channel), string(status)).Inc()
}

func (Recorder) ObserveExtraction(provider, result string) {
	extractionRequests.WithLabelValues(provider, result).Inc()
}

func (Recorder) ObservePoll(poller string, result *worker.PollResult, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	pollRuns.WithLabelValues(poller, outcome).Inc()
	if result != nil {
		pollEvents.WithLabelValues(poller).Add(float64(result.Fetched))
	}
}
