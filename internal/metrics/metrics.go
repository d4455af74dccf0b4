// Package metrics exposes the Prometheus instrumentation for the service:
// HTTP request counters and latencies plus seating-run outcomes.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wedding_planner"

var (
	// SeatingRunsStarted counts optimization runs accepted by the planner.
	SeatingRunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "seating_runs_started_total",
		Help:      "Total number of seating optimization runs started",
	})

	// SeatingRunsFinished counts finished runs by terminal state
	// (COMPLETED, FAILED, CANCELLED).
	SeatingRunsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seating_runs_finished_total",
			Help:      "Total number of seating optimization runs finished, by state",
		},
		[]string{"state"},
	)

	// SeatingRunDuration observes wall-clock run time of finished runs.
	SeatingRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "seating_run_duration_seconds",
		Help:      "Duration of seating optimization runs in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// SeatingRunScore observes the final score of completed runs.
	SeatingRunScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "seating_run_score",
		Help:      "Final score of completed seating runs (1.0 = no penalties)",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	})

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	apiRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "path"},
	)

	apiErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "Total number of API responses with status >= 400",
		},
		[]string{"method", "path", "status"},
	)
)

// Middleware records request counts, durations and error counts per route.
// The registered route pattern (c.Path) is used instead of the raw URL so
// /v1/events/:id stays one series.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			apiRequests.With(prometheus.Labels{
				"method": c.Request().Method,
				"path":   c.Path(),
			}).Inc()

			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			requestDuration.With(prometheus.Labels{
				"method": c.Request().Method,
				"path":   c.Path(),
				"status": status,
			}).Observe(time.Since(start).Seconds())

			if c.Response().Status >= 400 {
				apiErrors.With(prometheus.Labels{
					"method": c.Request().Method,
					"path":   c.Path(),
					"status": status,
				}).Inc()
			}
			return err
		}
	}
}

// Handler serves the /metrics endpoint.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
