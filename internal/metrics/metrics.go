package metrics

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

	ExamsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_exams_started_total",
			Help: "Exam sessions started, by exam type",
		},
		[]string{"exam_type"},
	)

	ExamsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_exams_finished_total",
			Help: "Exam sessions finished, by exam type",
		},
		[]string{"exam_type"},
	)

	ExamScores = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placement_exam_score",
			Help:    "Distribution of final exam scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"exam_type"},
	)

	GateOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_access_gate_total",
			Help: "Access gate decisions by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	BankLoadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_bank_load_failures_total",
			Help: "Question bank loads that failed, by sheet",
		},
		[]string{"sheet"},
	)

	ResultsPersisted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "placement_results_persisted_total",
			Help: "Exam results written to the database",
		},
	)

	ResultsDeadLettered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "placement_results_dead_lettered_total",
			Help: "Exam results moved to the dead-letter list after repeated insert failures",
		},
	)
)

var initOnce sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			ExamsStarted,
			ExamsFinished,
			ExamScores,
			GateOutcomes,
			BankLoadFailures,
			ResultsPersisted,
			ResultsDeadLettered,
		)
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
