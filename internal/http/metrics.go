package http

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "fedboard"

// appMetrics holds the collectors this service exports about itself.
type appMetrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	inFlight         prometheus.Gauge
	dbQueries        *prometheus.CounterVec
	dbDuration       *prometheus.HistogramVec
	externalProbes   *prometheus.CounterVec
	externalDuration *prometheus.HistogramVec
	alerts           *prometheus.CounterVec
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *appMetrics
)

func metrics() *appMetrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = newAppMetrics(prometheus.NewRegistry())
	})
	return sharedMetrics
}

func newAppMetrics(reg *prometheus.Registry) *appMetrics {
	m := &appMetrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests handled by this service.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests currently served.",
		}),
		dbQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "db_queries_total",
			Help:      "Database operations by connector, operation and result.",
		}, []string{"connector", "operation", "result"}),
		dbDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "db_query_duration_seconds",
			Help:      "Duration of database operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"connector", "operation"}),
		externalProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "external_requests_total",
			Help:      "Calls to the director, time-series backend and scrape targets.",
		}, []string{"target", "operation", "result"}),
		externalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "external_request_duration_seconds",
			Help:      "Duration of external calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target", "operation"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "alerts_total",
			Help:      "Alert actions dispatched, by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.inFlight,
		m.dbQueries, m.dbDuration,
		m.externalProbes, m.externalDuration,
		m.alerts,
	)
	return m
}

func metricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics().registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func observabilityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := metrics()
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := normalizeMetricPath(r.URL.Path)
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// normalizeMetricPath folds path parameters so label cardinality stays bounded.
func normalizeMetricPath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/cards/"):
		if strings.HasSuffix(path, "/allow") || strings.HasSuffix(path, "/filter") {
			return "/api/v1/cards/{name}/{action}"
		}
		return "/api/v1/cards/{name}"
	case strings.HasPrefix(path, "/api/v1.0/downtime/"):
		return "/api/v1.0/downtime/{id}"
	case strings.HasPrefix(path, "/api/v1/metrics/pages/"):
		if strings.HasSuffix(path, "/values") {
			return "/api/v1/metrics/pages/{page}/values"
		}
		return "/api/v1/metrics/pages/{page}"
	case path == "/", path == "/favicon.ico", path == "/metrics", path == "/health", path == "/ready",
		strings.HasPrefix(path, "/api/"):
		return path
	default:
		return "other"
	}
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func recordDBQuery(connector, operation string, durationSeconds float64, err error) {
	if connector == "" || operation == "" {
		return
	}
	m := metrics()
	m.dbQueries.WithLabelValues(connector, operation, resultLabel(err)).Inc()
	m.dbDuration.WithLabelValues(connector, operation).Observe(durationSeconds)
}

func recordExternalProbe(target, operation string, durationSeconds float64, err error) {
	if target == "" || operation == "" {
		return
	}
	m := metrics()
	m.externalProbes.WithLabelValues(target, operation, resultLabel(err)).Inc()
	m.externalDuration.WithLabelValues(target, operation).Observe(durationSeconds)
}

func recordAlert(kind string) {
	metrics().alerts.WithLabelValues(kind).Inc()
}
