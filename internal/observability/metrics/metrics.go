package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes application-level instruments for the decision core.
type Metrics struct {
	PipelineRuns       *prometheus.CounterVec
	PipelineDuration   prometheus.Histogram
	BenchmarkFallbacks prometheus.Counter
	ConsentCommits     prometheus.Counter
	ConsentRejections  prometheus.Counter
}

// New registers the domain instruments on the default registry.
func New() *Metrics {
	return &Metrics{
		PipelineRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fintraq_pipeline_runs_total",
			Help: "Baseline/leakage pipeline executions by outcome.",
		}, []string{"outcome"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fintraq_pipeline_duration_seconds",
			Help:    "Wall time of a full pipeline recompute.",
			Buckets: prometheus.DefBuckets,
		}),
		BenchmarkFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fintraq_benchmark_fallbacks_total",
			Help: "Peer benchmark computations that used the fallback factor.",
		}),
		ConsentCommits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fintraq_consent_commits_total",
			Help: "Successfully committed allocation consents.",
		}),
		ConsentRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fintraq_consent_rejections_total",
			Help: "Consent requests rejected by validation.",
		}),
	}
}

// HTTPMetrics instruments inbound HTTP requests.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fintraq_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fintraq_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// GinMiddleware records request counts and latencies.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		method := c.Request.Method

		m.requests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
