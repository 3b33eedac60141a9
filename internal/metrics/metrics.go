// Package metrics holds the Prometheus collectors shared by the HTTP layer
// and the services. Collectors register with the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foldervault_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foldervault_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Business metrics
var (
	// UploadsTotal counts finished uploads by result (completed, failed).
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foldervault_uploads_total",
			Help: "Uploads by final state",
		},
		[]string{"result"},
	)

	// UploadBytesTotal counts bytes written by completed uploads.
	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foldervault_upload_bytes_total",
			Help: "Bytes written by completed uploads",
		},
	)

	// FolderOperationsTotal counts folder tree operations by kind and result.
	FolderOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foldervault_folder_operations_total",
			Help: "Folder operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	// ProgressEventsTotal counts progress events by outcome (delivered, dropped).
	ProgressEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foldervault_progress_events_total",
			Help: "Progress events by delivery outcome",
		},
		[]string{"outcome"},
	)

	// ProgressSubscribers is the number of live progress subscriptions.
	ProgressSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "foldervault_progress_subscribers",
			Help: "Open progress subscriptions",
		},
	)

	// FolderCacheHitsTotal and FolderCacheMissesTotal track the folder lookup cache.
	FolderCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foldervault_folder_cache_hits_total",
		Help: "Folder cache hits",
	})
	FolderCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foldervault_folder_cache_misses_total",
		Help: "Folder cache misses",
	})
)

// Result labels
const (
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultCompleted = "completed"
	ResultFailed    = "failed"
	OutcomeSent     = "delivered"
	OutcomeDropped  = "dropped"
)

// ObserveFolderOperation records one folder operation outcome.
func ObserveFolderOperation(operation string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	FolderOperationsTotal.WithLabelValues(operation, result).Inc()
}
