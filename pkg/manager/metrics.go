package manager

import "sync/atomic"

// metric indexes the fixed counter array: get, batch_get, set,
// batch_set, read_time_ms, write_time_ms, tombstone, and the three
// user-query counts.
type metric int

const (
	metricGet metric = iota
	metricBatchGet
	metricSet
	metricBatchSet
	metricReadTimeMs
	metricWriteTimeMs
	metricTombstone
	metricGetUserState
	metricGetUserData
	metricGetUserStateVersions
	numMetrics
)

func (m metric) String() string {
	switch m {
	case metricGet:
		return "get"
	case metricBatchGet:
		return "batch_get"
	case metricSet:
		return "set"
	case metricBatchSet:
		return "batch_set"
	case metricReadTimeMs:
		return "read_time_ms"
	case metricWriteTimeMs:
		return "write_time_ms"
	case metricTombstone:
		return "tombstone"
	case metricGetUserState:
		return "get_user_state"
	case metricGetUserData:
		return "get_user_data"
	case metricGetUserStateVersions:
		return "get_user_state_versions"
	default:
		return "unknown"
	}
}

// counters is the fixed-size array of atomic counters shared across a
// Manager and every clone derived from it.
type counters [numMetrics]atomic.Uint64

// Snapshot is a point-in-time read of every counter, keyed by name so
// pkg/metrics can republish it without depending on this package's
// internal metric type.
type Snapshot map[string]uint64

func (c *counters) snapshot() Snapshot {
	out := make(Snapshot, numMetrics)
	for m := metric(0); m < numMetrics; m++ {
		out[m.String()] = c[m].Load()
	}
	return out
}
