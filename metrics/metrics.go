package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts API requests by method, endpoint and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDurationSeconds observes API request latency
	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// AlertsGeneratedTotal counts triggered alerts by rule and severity
	AlertsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_generated_total",
			Help: "Total number of alerts generated",
		},
		[]string{"rule", "severity"},
	)

	// AlertScanDurationSeconds observes full portfolio scan latency
	AlertScanDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alert_scan_duration_seconds",
			Help:    "Portfolio alert scan duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ReadingsIngestedTotal counts bulk-loaded meter readings
	ReadingsIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "readings_ingested_total",
			Help: "Total number of meter readings ingested",
		},
	)
)
