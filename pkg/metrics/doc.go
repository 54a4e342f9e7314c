/*
Package metrics exposes the storage mediator's counters and cache
statistics as Prometheus metrics, plus simple HTTP health/readiness/
liveness handlers.

# Metrics

akd_storage_operations_total{operation}:
  - Type: Gauge (republishes pkg/manager's cumulative counters)
  - One series per operation name: get, batch_get, set, batch_set,
    read_time_ms, write_time_ms, tombstone, get_user_state,
    get_user_data, get_user_state_versions

akd_storage_read_duration_seconds / akd_storage_write_duration_seconds:
  - Type: Histogram

akd_cache_entries / akd_cache_bytes:
  - Type: Gauge, current cache occupancy

akd_cache_hits_total / akd_cache_misses_total:
  - Type: Gauge, cumulative cache hit/miss counts

akd_transaction_active:
  - Type: Gauge, 1 while a transaction is open on the observed Manager

akd_metrics_collection_duration_seconds:
  - Type: Histogram, time spent in one Collector poll-and-republish cycle

# Usage

	collector := metrics.NewCollector(mgr)
	collector.Start()
	defer collector.Stop()

	http.Handle("/metrics", metrics.Handler())
	http.HandleFunc("/health", metrics.HealthHandler())
	http.HandleFunc("/ready", metrics.ReadyHandler())
	http.HandleFunc("/live", metrics.LivenessHandler())
*/
package metrics
