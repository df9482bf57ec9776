package api

import (
	"strconv"
	"time"

	"goiqc/app"
	"goiqc/domain/qc"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors exported on /metrics
type Metrics struct {
	evaluations  *prometheus.CounterVec
	runs         *prometheus.CounterVec
	duration     prometheus.Histogram
	requests     *prometheus.CounterVec
	requestTimes *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "iqc_evaluations_total",
			Help: "Evaluations completed, by sigma category",
		}, []string{"category"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "iqc_runs_evaluated_total",
			Help: "Runs evaluated, by run status",
		}, []string{"status"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "iqc_evaluation_duration_seconds",
			Help:    "Evaluation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "iqc_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"method", "route", "status"}),
		requestTimes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iqc_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// ObserveOutcome counts one evaluation and its runs by status
func (m *Metrics) ObserveOutcome(out *app.Outcome, elapsed time.Duration) {
	if m == nil || out == nil || out.Report == nil {
		return
	}
	m.evaluations.WithLabelValues(out.Category.String()).Inc()
	m.runs.WithLabelValues(string(qc.StatusInControl)).Add(float64(out.Report.InControl))
	m.runs.WithLabelValues(string(qc.StatusWarning)).Add(float64(out.Report.Warnings))
	m.runs.WithLabelValues(string(qc.StatusOutOfControl)).Add(float64(out.Report.Rejections))
	m.duration.Observe(elapsed.Seconds())
}

// Middleware records request counts and latency per matched route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestTimes.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
