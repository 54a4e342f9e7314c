package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OperationsTotal mirrors pkg/manager's cumulative per-kind counters
	// verbatim. It is a GaugeVec, not a CounterVec, because Manager's
	// Snapshot is already a running total - Collector sets it directly
	// rather than accumulating deltas.
	OperationsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "akd_storage_operations_total",
			Help: "Cumulative count of storage mediator operations by kind",
		},
		[]string{"operation"},
	)

	ReadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "akd_storage_read_duration_seconds",
			Help:    "Time taken for backing-store reads in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	WriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "akd_storage_write_duration_seconds",
			Help:    "Time taken for backing-store writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Cache gauges, refreshed by Collector from a live Cache/Manager.
	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "akd_cache_entries",
			Help: "Number of records currently held in the object cache",
		},
	)

	CacheBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "akd_cache_bytes",
			Help: "Estimated bytes currently held in the object cache",
		},
	)

	CacheHitsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "akd_cache_hits_total",
			Help: "Cumulative count of object cache hits",
		},
	)

	CacheMissesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "akd_cache_misses_total",
			Help: "Cumulative count of object cache misses",
		},
	)

	// TransactionActive reports 1 while a transaction is open on the
	// mediator being observed, 0 otherwise.
	TransactionActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "akd_transaction_active",
			Help: "Whether a storage transaction is currently open",
		},
	)

	// CollectionDuration times the Collector's own poll-and-republish
	// cycle, independent of the mediator's own read/write timings.
	CollectionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "akd_metrics_collection_duration_seconds",
			Help:    "Time taken to poll the mediator and republish its metrics",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(OperationsTotal)
	prometheus.MustRegister(ReadDuration)
	prometheus.MustRegister(WriteDuration)
	prometheus.MustRegister(CacheEntries)
	prometheus.MustRegister(CacheBytes)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(TransactionActive)
	prometheus.MustRegister(CollectionDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
