package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{
	0.001, // 1ms
	0.005, // 5ms
	0.01,  // 10ms
	0.025, // 25ms
	0.05,  // 50ms
	0.1,   // 100ms
	0.25,  // 250ms
	0.5,   // 500ms
	1.0,   // 1s
	2.5,   // 2.5s
	5.0,   // 5s
	10.0,  // 10s
}

var (
	// ReserveDuration tracks the latency of slot reservation attempts.
	// The two labelled operations below are the only ones with a
	// correctness-critical race, so they get their own histograms.
	ReserveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campaign_reserve_duration_seconds",
			Help:    "Duration of campaign slot reservation requests in seconds",
			Buckets: latencyBuckets,
		},
		[]string{"result"}, // reserved, already_applied, quota_exceeded, deadline_passed, closed, error
	)

	// ScanDuration tracks the latency of QR token scans
	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qr_scan_duration_seconds",
			Help:    "Duration of QR token scan requests in seconds",
			Buckets: latencyBuckets,
		},
		[]string{"result"}, // completed, not_found, already_used, expired, error
	)
)

// RecordReserveDuration records the duration of a reservation request
func RecordReserveDuration(result string, duration float64) {
	ReserveDuration.WithLabelValues(result).Observe(duration)
}

// RecordScanDuration records the duration of a scan request
func RecordScanDuration(result string, duration float64) {
	ScanDuration.WithLabelValues(result).Observe(duration)
}
