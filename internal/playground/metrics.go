package playground

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "trendstudio"

var (
	// playgroundRunsTotal counts generations by kind (run, batch) and status.
	playgroundRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "playground",
			Name:      "runs_total",
			Help:      "Total number of playground generations",
		},
		[]string{"kind", "status"},
	)

	// playgroundUnresolvedTotal counts placeholders left without a value.
	playgroundUnresolvedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "playground",
			Name:      "unresolved_variables_total",
			Help:      "Total number of placeholders sent without a value",
		},
	)

	// batchDuration measures whole batch tests.
	batchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "playground",
			Name:      "batch_duration_seconds",
			Help:      "Duration of batch tests in seconds",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 1800},
		},
	)

	// tempFilesDeletedTotal counts generated files removed by cleanup.
	tempFilesDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "playground",
			Name:      "temp_files_deleted_total",
			Help:      "Total number of generated files removed by cleanup",
		},
	)
)

func recordRun(kind string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	playgroundRunsTotal.WithLabelValues(kind, status).Inc()
}

// RecordTempFilesDeleted records generated files removed by cleanup.
func RecordTempFilesDeleted(n int) {
	if n > 0 {
		tempFilesDeletedTotal.Add(float64(n))
	}
}
