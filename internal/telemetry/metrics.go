// Package telemetry holds the Prometheus collectors exported on METRICS_ADDR.
package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Validations counts criteria validations by outcome (valid, invalid).
	Validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "targeting_validations_total",
			Help: "Targeting criteria validations by outcome",
		},
		[]string{"outcome"},
	)
	// Targetings counts persisted changes by operation (upsert, delete).
	Targetings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "targeting_changes_total",
			Help: "Saved and deleted targeting definitions",
		},
		[]string{"operation"},
	)
	// CatalogFields is the size of the loaded field catalog.
	CatalogFields = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "targeting_catalog_fields",
		Help: "Number of fields in the loaded catalog",
	})
	// StreamClients is the number of open catalog change streams.
	StreamClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "targeting_stream_clients",
		Help: "Number of currently connected catalog stream clients",
	})
	// Deliveries counts outbound notifications by sink and result.
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "targeting_event_deliveries_total",
			Help: "Outbound event deliveries by sink and result",
		},
		[]string{"sink", "result"},
	)
)

var initOnce sync.Once

// Init registers the collectors with the default registry. It is safe to
// call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpReqs, httpDur, Validations, Targetings, CatalogFields, StreamClients, Deliveries)
	})
}

// ObserveValidation records a validation outcome.
func ObserveValidation(valid bool) {
	if valid {
		Validations.WithLabelValues("valid").Inc()
		return
	}
	Validations.WithLabelValues("invalid").Inc()
}

// Middleware records request counts and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		// the pattern is only complete once routing has finished
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		httpReqs.WithLabelValues(route, r.Method, strconv.Itoa(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
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

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
