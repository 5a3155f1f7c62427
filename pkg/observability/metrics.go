package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth outcomes recorded by RecordAuth
const (
	OutcomeSuccess   = "success"
	OutcomeInvalid   = "invalid_input"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Auth metrics
	AuthAttemptsTotal     *prometheus.CounterVec
	AccessDecisionsTotal  *prometheus.CounterVec
	RateLimitRejectsTotal *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsOpen         prometheus.Gauge
	DBConnectionsIdle         prometheus.Gauge
	DBConnectionsWaitCount    prometheus.Gauge
	DBConnectionsWaitDuration prometheus.Gauge
	DBReplicasHealthy         prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasklist_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tasklist_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tasklist_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tasklist_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),

		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasklist_auth_attempts_total",
				Help: "Login and registration attempts by outcome",
			},
			[]string{"operation", "outcome"},
		),
		AccessDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasklist_access_decisions_total",
				Help: "Authorization gate decisions",
			},
			[]string{"decision"},
		),
		RateLimitRejectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasklist_rate_limit_rejections_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"limiter"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasklist_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type", "key_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tasklist_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type", "key_type"},
		),

		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasklist_db_connections_open",
			Help: "Number of open database connections on the primary",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasklist_db_connections_idle",
			Help: "Number of idle database connections on the primary",
		}),
		DBConnectionsWaitCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasklist_db_connections_wait_count",
			Help: "Total number of connections waited for",
		}),
		DBConnectionsWaitDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasklist_db_connections_wait_duration_seconds",
			Help: "Total time spent waiting for connections",
		}),
		DBReplicasHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasklist_db_replicas_healthy",
			Help: "Number of read replicas in rotation",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.AuthAttemptsTotal,
		m.AccessDecisionsTotal,
		m.RateLimitRejectsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DBConnectionsOpen,
		m.DBConnectionsIdle,
		m.DBConnectionsWaitCount,
		m.DBConnectionsWaitDuration,
		m.DBReplicasHealthy,
	)

	return m
}

// RecordAuth counts a login or registration outcome. Safe on a nil receiver.
func (m *Metrics) RecordAuth(operation, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttemptsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordAccess counts an authorization decision ("allowed", "forbidden", "unauthenticated")
func (m *Metrics) RecordAccess(decision string) {
	if m == nil {
		return
	}
	m.AccessDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordRateLimited counts a rejected request
func (m *Metrics) RecordRateLimited(limiter string) {
	if m == nil {
		return
	}
	m.RateLimitRejectsTotal.WithLabelValues(limiter).Inc()
}

// RecordCacheLookup counts a cache hit or miss
func (m *Metrics) RecordCacheLookup(cacheType, keyType string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cacheType, keyType).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cacheType, keyType).Inc()
	}
}

// ObserveDBStats copies connection pool statistics into gauges
func (m *Metrics) ObserveDBStats(stats sql.DBStats, replicas int) {
	if m == nil {
		return
	}
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	m.DBConnectionsWaitCount.Set(float64(stats.WaitCount))
	m.DBConnectionsWaitDuration.Set(stats.WaitDuration.Seconds())
	m.DBReplicasHealthy.Set(float64(replicas))
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// routeLabel returns the mux route template so ids don't explode label cardinality
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Register it with router.Use so the matched route is known.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := routeLabel(r)

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(r.Method, route).Observe(float64(r.ContentLength))
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
