// Package metrics registers the Prometheus collectors exposed by the
// ingestion daemon at /metrics, grounded on the teacher's package-level
// promauto registration style.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FilesProcessedTotal counts files that reached a terminal disposition.
	FilesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visor_files_processed_total",
			Help: "Total number of files that finished processing, by line and outcome",
		},
		[]string{"line", "status"},
	)

	// FileProcessingDuration times a full settle-to-dispose cycle.
	FileProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visor_file_processing_duration_seconds",
			Help:    "Time spent processing a single file end to end",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"line"},
	)

	// SQLInsertsTotal counts rows successfully inserted into SQL Server.
	SQLInsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visor_sql_inserts_total",
			Help: "Total number of rows inserted into SQL Server, by line",
		},
		[]string{"line"},
	)

	// SQLErrorsTotal counts SQL Server failures by classification.
	SQLErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visor_sql_errors_total",
			Help: "Total number of SQL Server errors, by line and classification",
		},
		[]string{"line", "classification"},
	)

	// ActiveWatchers reports the number of currently running line watchers.
	ActiveWatchers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "visor_active_watchers",
		Help: "Number of line directory watchers currently running",
	})

	// PendingFiles reports files observed but not yet dispatched, by line.
	PendingFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "visor_pending_files",
			Help: "Number of files waiting to be processed, by line",
		},
		[]string{"line"},
	)
)

// Handler returns the HTTP handler serving the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
