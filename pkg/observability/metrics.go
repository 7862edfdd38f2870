package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Authentication metrics
	LoginTotal         *prometheus.CounterVec
	TokensIssuedTotal  *prometheus.CounterVec
	TokenRefreshTotal  *prometheus.CounterVec
	TokenVerifyErrors  *prometheus.CounterVec
	SessionRevocationsTotal prometheus.Counter

	// Authorization metrics
	AuthzDecisionsTotal *prometheus.CounterVec
	AuthzCacheHitsTotal   prometheus.Counter
	AuthzCacheMissesTotal prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Redis metrics
	RedisConnectionsActive prometheus.Gauge

	// Business metrics
	UsersTotal         prometheus.Gauge
	VisitorCodesActive prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ewaab_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ewaab_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ewaab_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		// Authentication metrics
		LoginTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ewaab_login_total",
				Help: "Total number of login attempts",
			},
			[]string{"method", "outcome"},
		),
		TokensIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ewaab_tokens_issued_total",
				Help: "Total number of tokens issued",
			},
			[]string{"purpose"},
		),
		TokenRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ewaab_token_refresh_total",
				Help: "Total number of refresh attempts",
			},
			[]string{"outcome"},
		),
		TokenVerifyErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ewaab_token_verify_errors_total",
				Help: "Total number of token verification failures",
			},
			[]string{"purpose", "reason"},
		),
		SessionRevocationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ewaab_session_revocations_total",
				Help: "Total number of session revocations",
			},
		),

		// Authorization metrics
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ewaab_authz_decisions_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"resource", "access", "outcome"},
		),
		AuthzCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ewaab_authz_cache_hits_total",
				Help: "Total number of resource lookup cache hits",
			},
		),
		AuthzCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ewaab_authz_cache_misses_total",
				Help: "Total number of resource lookup cache misses",
			},
		),

		// Database metrics
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ewaab_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ewaab_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		// Redis metrics
		RedisConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ewaab_redis_connections_active",
				Help: "Number of active Redis connections",
			},
		),

		// Business metrics
		UsersTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ewaab_users_total",
				Help: "Total number of registered users",
			},
		),
		VisitorCodesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ewaab_visitor_codes_active",
				Help: "Number of unexpired visitor codes",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.LoginTotal,
		m.TokensIssuedTotal,
		m.TokenRefreshTotal,
		m.TokenVerifyErrors,
		m.SessionRevocationsTotal,
		m.AuthzDecisionsTotal,
		m.AuthzCacheHitsTotal,
		m.AuthzCacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.RedisConnectionsActive,
		m.UsersTotal,
		m.VisitorCodesActive,
	)

	return m
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

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
