package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService records the operational metrics exposed on /metrics.
type MetricsService interface {
	RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordLedgerOperation(operation, outcome string, duration time.Duration)
	RecordPartialApplication(operation string)
	RecordReconciliation(adjusted bool, drift float64, duration time.Duration)
	RecordCacheOperation(operation string, hit bool)
	Handler() gin.HandlerFunc
	Middleware() gin.HandlerFunc
}

type prometheusMetrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	ledgerOperationsTotal    *prometheus.CounterVec
	ledgerOperationDuration  *prometheus.HistogramVec
	partialApplicationsTotal *prometheus.CounterVec

	reconciliationRunsTotal *prometheus.CounterVec
	reconciliationDrift     prometheus.Histogram
	reconciliationDuration  prometheus.Histogram

	cacheOperationsTotal *prometheus.CounterVec
}

func NewPrometheusMetrics() MetricsService {
	m := &prometheusMetrics{}

	m.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletwise_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	m.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletwise_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	m.ledgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletwise_ledger_operations_total",
			Help: "Ledger operations by type and outcome",
		},
		[]string{"operation", "outcome"},
	)

	m.ledgerOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletwise_ledger_operation_duration_seconds",
			Help:    "Ledger operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	m.partialApplicationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletwise_ledger_partial_applications_total",
			Help: "Operations where the record persisted but the balance increment failed",
		},
		[]string{"operation"},
	)

	m.reconciliationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletwise_reconciliation_runs_total",
			Help: "Per-user reconciliation outcomes",
		},
		[]string{"outcome"},
	)

	m.reconciliationDrift = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "walletwise_reconciliation_drift",
			Help:    "Absolute drift corrected per reconciled user",
			Buckets: []float64{0.01, 0.1, 1, 10, 100, 1000, 10000},
		},
	)

	m.reconciliationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "walletwise_reconciliation_duration_seconds",
			Help:    "Duration of per-user reconciliation",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.cacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletwise_cache_operations_total",
			Help: "Cache operations by type and hit/miss",
		},
		[]string{"operation", "result"},
	)

	return m
}

func (m *prometheusMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (m *prometheusMetrics) RecordLedgerOperation(operation, outcome string, duration time.Duration) {
	m.ledgerOperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.ledgerOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *prometheusMetrics) RecordPartialApplication(operation string) {
	m.partialApplicationsTotal.WithLabelValues(operation).Inc()
}

func (m *prometheusMetrics) RecordReconciliation(adjusted bool, drift float64, duration time.Duration) {
	outcome := "clean"
	if adjusted {
		outcome = "adjusted"
	}
	m.reconciliationRunsTotal.WithLabelValues(outcome).Inc()
	if drift < 0 {
		drift = -drift
	}
	m.reconciliationDrift.Observe(drift)
	m.reconciliationDuration.Observe(duration.Seconds())
}

func (m *prometheusMetrics) RecordCacheOperation(operation string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// Handler serves the Prometheus scrape endpoint.
func (m *prometheusMetrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// Middleware records per-request HTTP metrics. Uses the route template as
// the endpoint label so path parameters don't explode cardinality.
func (m *prometheusMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}
