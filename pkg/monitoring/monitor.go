package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// SubmissionCounter kind: quiz/assignment，outcome: 错误分类或 ok
	SubmissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grading_submissions_total",
			Help: "Total number of grading operations by assessment kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	GradingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grading_duration_seconds",
			Help:    "Duration of grading operations",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation"},
	)

	RecomputeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_recomputations_total",
			Help: "Total number of progress recomputations by outcome",
		},
		[]string{"outcome"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(SubmissionCounter)
	prometheus.MustRegister(GradingDuration)
	prometheus.MustRegister(RecomputeCounter)
}

// ObserveGrading 记录一次评分操作的耗时与结果
func ObserveGrading(kind, operation, outcome string, start time.Time) {
	SubmissionCounter.WithLabelValues(kind, outcome).Inc()
	GradingDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
