// Package metrics provides Prometheus metrics for cleanup runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run kinds
const (
	RunCleanup       = "cleanup"
	RunEmptyRecycler = "empty_recycler"
	RunMoveSelected  = "move_selected"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "file_cleanup_runs_total",
			Help: "Total number of cleanup runs",
		},
		[]string{"kind", "status"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "file_cleanup_run_duration_seconds",
			Help:    "Cleanup run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	filesFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "file_cleanup_files_found_total",
			Help: "Files found eligible by cleanup runs",
		},
		[]string{"kind"},
	)

	fileOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "file_cleanup_file_operations_total",
			Help: "File moves and deletions by result",
		},
		[]string{"operation", "status"},
	)

	lastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "file_cleanup_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		},
		[]string{"kind"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "file_cleanup_http_requests_total",
			Help: "Total number of backend HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

// RecordRun records a finished run.
func RecordRun(kind string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	runsTotal.WithLabelValues(kind, status).Inc()
	runDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err == nil {
		lastRunTimestamp.WithLabelValues(kind).SetToCurrentTime()
	}
}

// RecordFound adds n eligible files for a run kind.
func RecordFound(kind string, n int) {
	filesFound.WithLabelValues(kind).Add(float64(n))
}

// RecordFileOperations counts succeeded and failed moves or deletions.
func RecordFileOperations(operation string, succeeded, failed int) {
	fileOperations.WithLabelValues(operation, "success").Add(float64(succeeded))
	fileOperations.WithLabelValues(operation, "error").Add(float64(failed))
}

// RecordHTTPRequest counts a backend request.
func RecordHTTPRequest(method, route string, status int) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
