// Package metrics provides Prometheus metrics for drivefs operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivefs_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drivefs_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Storage operation metrics, one observation per engine call
	StorageOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivefs_storage_ops_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"}, // status is the error kind or "success"
	)

	StorageOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drivefs_storage_op_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	// Object counters for multi-object operations
	ObjectsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drivefs_objects_deleted_total",
			Help: "Total number of objects removed by delete and rename",
		},
	)

	ObjectsCopiedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drivefs_objects_copied_total",
			Help: "Total number of objects copied by rename",
		},
	)

	PartialFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivefs_partial_failures_total",
			Help: "Total number of multi-object operations that left some objects unprocessed",
		},
		[]string{"operation"},
	)

	BytesUploadedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drivefs_bytes_uploaded_total",
			Help: "Total number of bytes written by uploads",
		},
	)

	// Lock manager metrics
	LockOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivefs_lock_operations_total",
			Help: "Total number of lock operations",
		},
		[]string{"operation", "status"}, // operation: "acquire", "release"; status: "success", "busy", "failure"
	)

	// Download link metrics
	DownloadLinksGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drivefs_download_links_generated_total",
			Help: "Total number of presigned download links generated",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivefs_errors_total",
			Help: "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)
)
