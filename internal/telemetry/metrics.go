package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	ReportsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_reports_built_total",
		Help: "Reports computed, by kind and surface",
	}, []string{"kind", "surface"})

	ReportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parking_report_duration_seconds",
		Help:    "Time spent computing one report",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"kind"})

	DroppedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_normalizer_dropped_rows_total",
		Help: "Raw rows discarded by the normalizer",
	}, []string{"collection"})

	SnapshotRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parking_snapshot_records",
		Help: "Records held by the latest snapshot per facility",
	}, []string{"facility", "collection"})

	// Infrastructure metrics
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "parking_snapshot_fetch_duration_seconds",
		Help:    "Time spent fetching and normalizing one snapshot",
		Buckets: prometheus.DefBuckets,
	})

	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_snapshot_fetch_errors_total",
		Help: "Snapshot fetches that degraded to an empty snapshot",
	}, []string{"facility"})

	SupersededFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parking_snapshot_superseded_total",
		Help: "Fetch results discarded because a newer fetch was started",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_http_requests_total",
		Help: "HTTP API requests by route and status",
	}, []string{"route", "status"})
)

// ObserveReport records one computed report.
func ObserveReport(kind, surface string, started time.Time) {
	ObserveReportDuration(kind, surface, time.Since(started))
}

// ObserveReportDuration records one computed report with a measured build time.
func ObserveReportDuration(kind, surface string, elapsed time.Duration) {
	ReportsBuilt.WithLabelValues(kind, surface).Inc()
	ReportDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveDropped adds normalizer drop counts.
func ObserveDropped(sessions, payments, subscriptions, shifts int) {
	DroppedRows.WithLabelValues("sessions").Add(float64(sessions))
	DroppedRows.WithLabelValues("payments").Add(float64(payments))
	DroppedRows.WithLabelValues("subscriptions").Add(float64(subscriptions))
	DroppedRows.WithLabelValues("shifts").Add(float64(shifts))
}
