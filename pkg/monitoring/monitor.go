package monitoring

import (
	"strconv"
	"sync"
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
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// SubmissionCounter 按结果统计提交：created/updated/stale/opted_out/... 以及错误分类
	SubmissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcq_submissions_total",
			Help: "PCQ submissions by outcome or error kind",
		},
		[]string{"outcome"},
	)

	DisposalCandidates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pcq_disposal_candidates",
			Help: "Records past their retention horizon found by the last disposer run",
		},
		[]string{"horizon"},
	)

	DisposedRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcq_disposed_records_total",
			Help: "Records permanently deleted by the disposer",
		},
		[]string{"horizon"},
	)
)

var initOnce sync.Once

// Init 注册全部指标，重复调用无副作用
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(SubmissionCounter)
		prometheus.MustRegister(DisposalCandidates)
		prometheus.MustRegister(DisposedRecords)
	})
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
