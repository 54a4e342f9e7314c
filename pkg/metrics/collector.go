package metrics

import (
	"time"

	"github.com/cuemby/akdstore/pkg/manager"
)

// Collector polls a Manager's counters and republishes them as
// Prometheus metrics on a fixed interval.
type Collector struct {
	manager *manager.Manager
	stopCh  chan struct{}

	// lastReadMs/lastWriteMs are the previous poll's cumulative
	// read_time_ms/write_time_ms counters, so each tick can observe
	// the incremental time spent as a histogram sample rather than
	// re-publishing a running total.
	lastReadMs  uint64
	lastWriteMs uint64
}

// NewCollector creates a metrics collector over mgr.
func NewCollector(mgr *manager.Manager) *Collector {
	return &Collector{
		manager: mgr,
		stopCh:  make(chan struct{}),
	}
}

// Start begins polling on a 15s interval, collecting once immediately.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts polling.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	timer := NewTimer()
	defer timer.ObserveDuration(CollectionDuration)

	snap := c.manager.MetricsSnapshot()
	for name, value := range snap {
		OperationsTotal.WithLabelValues(name).Set(float64(value))
	}

	if readMs := snap["read_time_ms"]; readMs >= c.lastReadMs {
		ReadDuration.Observe(float64(readMs-c.lastReadMs) / 1000)
		c.lastReadMs = readMs
	}
	if writeMs := snap["write_time_ms"]; writeMs >= c.lastWriteMs {
		WriteDuration.Observe(float64(writeMs-c.lastWriteMs) / 1000)
		c.lastWriteMs = writeMs
	}

	if hits, misses, entries, bytes, ok := c.manager.CacheStats(); ok {
		CacheHitsTotal.Set(float64(hits))
		CacheMissesTotal.Set(float64(misses))
		CacheEntries.Set(float64(entries))
		CacheBytes.Set(float64(bytes))
	}

	if c.manager.IsTransactionActive() {
		TransactionActive.Set(1)
	} else {
		TransactionActive.Set(0)
	}
}
