package manager

import (
	"context"
	"time"

	"github.com/cuemby/akdstore/pkg/cache"
	"github.com/cuemby/akdstore/pkg/log"
	"github.com/cuemby/akdstore/pkg/record"
	"github.com/cuemby/akdstore/pkg/storage"
	"github.com/cuemby/akdstore/pkg/transaction"
	"github.com/rs/zerolog"
)

// Config configures a Manager. Cache is optional: a nil Cache means
// "no-cache mode", where every read goes straight to the backing store.
type Config struct {
	// MetricsEnabled gates the ten-counter array and timing wrappers.
	// When false, increments and ticToc become no-ops so metrics impose
	// no measurable overhead on the hot path.
	MetricsEnabled bool `yaml:"metrics_enabled"`
	// Cache, when non-nil, configures the TTL/byte-budget object cache.
	Cache *cache.Config `yaml:"cache,omitempty"`
}

// Manager is the storage mediator: it composes a Database, an optional
// Cache, and a Transaction buffer, and enforces the read/write
// precedence rules between them.
type Manager struct {
	db             storage.Database
	cache          *cache.Cache
	tx             *transaction.Buffer
	metrics        *counters
	metricsEnabled bool
	logger         zerolog.Logger
}

// New creates a Manager over db using cfg.
func New(db storage.Database, cfg Config) *Manager {
	var c *cache.Cache
	if cfg.Cache != nil {
		c = cache.New(*cfg.Cache)
	}
	return &Manager{
		db:             db,
		cache:          c,
		tx:             transaction.New(),
		metrics:        &counters{},
		metricsEnabled: cfg.MetricsEnabled,
		logger:         log.WithComponent("manager"),
	}
}

// Clone returns a Manager sharing this one's cache, backing store, and
// metric counters, but with its own fresh transaction buffer. Non-goals:
// clones are not isolated from each other at the backing-store level;
// the caller must ensure a single writer per directory at a time.
func (m *Manager) Clone() *Manager {
	return &Manager{
		db:             m.db,
		cache:          m.cache,
		tx:             transaction.New(),
		metrics:        m.metrics,
		metricsEnabled: m.metricsEnabled,
		logger:         m.logger,
	}
}

// IsTransactionActive reports whether a transaction is currently open on
// this Manager (not its clones).
func (m *Manager) IsTransactionActive() bool {
	return m.tx.IsActive()
}

// BeginTransaction opens a transaction, pausing cache cleaning for its
// duration. It returns true if this call performed the transition (false
// if a transaction was already active - an idempotent no-op).
func (m *Manager) BeginTransaction() bool {
	started := m.tx.Begin()
	if started && m.cache != nil {
		m.cache.DisableClean()
	}
	return started
}

// CommitTransaction drains the transaction buffer and, if it staged any
// records, writes them to the cache and then the backing store. The
// cache is updated first so a caller observing a successful commit also
// observes the new values through this Manager, even if the store
// acknowledges lazily.
func (m *Manager) CommitTransaction(ctx context.Context) error {
	recs := m.tx.Commit()
	if m.cache != nil {
		m.cache.EnableClean()
	}

	if len(recs) == 0 {
		return nil
	}

	if _, ok := recs[len(recs)-1].(*record.DirectoryMetadata); !ok {
		return storage.Transactionf("last record in transaction log is not a DirectoryMetadata")
	}

	if m.cache != nil {
		m.cache.BatchPut(recs)
	}

	_, err := ticToc(m, metricWriteTimeMs, func() (struct{}, error) {
		return struct{}{}, m.db.BatchSet(ctx, recs, storage.SetTransactionCommit)
	})
	if err != nil {
		return err
	}
	m.incrementMetric(metricBatchSet)
	return nil
}

// RollbackTransaction discards the transaction buffer. No cache
// mutation occurs, since nothing staged was ever made visible through
// the transaction path.
func (m *Manager) RollbackTransaction() error {
	m.tx.Rollback()
	if m.cache != nil {
		m.cache.EnableClean()
	}
	return nil
}

// Set writes rec: into the open transaction if one is active, else into
// the cache and the backing store.
func (m *Manager) Set(ctx context.Context, rec record.Record) error {
	if m.tx.IsActive() {
		m.tx.Set(rec)
		return nil
	}

	if m.cache != nil {
		m.cache.Put(rec)
	}

	_, err := ticToc(m, metricWriteTimeMs, func() (struct{}, error) {
		return struct{}{}, m.db.Set(ctx, rec)
	})
	if err != nil {
		return err
	}
	m.incrementMetric(metricSet)
	return nil
}

// BatchSet writes recs as a group, following the same transaction/cache
// routing as Set. An empty batch is a no-op that touches nothing.
func (m *Manager) BatchSet(ctx context.Context, recs []record.Record) error {
	if len(recs) == 0 {
		return nil
	}

	if m.tx.IsActive() {
		m.tx.BatchSet(recs)
		return nil
	}

	if m.cache != nil {
		m.cache.BatchPut(recs)
	}

	_, err := ticToc(m, metricWriteTimeMs, func() (struct{}, error) {
		return struct{}{}, m.db.BatchSet(ctx, recs, storage.SetGeneral)
	})
	if err != nil {
		return err
	}
	m.incrementMetric(metricBatchSet)
	return nil
}

// Get resolves key against the open transaction (if any), then the
// cache, then the backing store, populating the cache on a store read.
func (m *Manager) Get(ctx context.Context, key record.Key) (record.Record, error) {
	if m.tx.IsActive() {
		if rec, ok := m.tx.Get(key); ok {
			return rec, nil
		}
	}

	if m.cache != nil {
		if rec, ok := m.cache.HitTest(key); ok {
			return rec, nil
		}
	}

	rec, err := ticToc(m, metricReadTimeMs, func() (record.Record, error) {
		return m.db.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	if m.cache != nil {
		m.cache.Put(rec)
	}
	m.incrementMetric(metricGet)
	return rec, nil
}

// GetDirect bypasses the transaction buffer and the cache, reading
// straight from the backing store. Used for repair/audit paths that
// must not be fooled by an in-flight transaction or a stale cache entry.
func (m *Manager) GetDirect(ctx context.Context, key record.Key) (record.Record, error) {
	rec, err := ticToc(m, metricReadTimeMs, func() (record.Record, error) {
		return m.db.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	m.incrementMetric(metricGet)
	return rec, nil
}

// BatchGet resolves each of keys the same way Get does, issuing at most
// one backing-store batch request for whatever keys neither the
// transaction nor the cache resolved. Duplicate input keys never cause
// duplicate backing-store requests.
func (m *Manager) BatchGet(ctx context.Context, keys []record.Key) ([]record.Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	out := make([]record.Record, 0, len(keys))
	missing := make(map[record.Key]struct{})
	txActive := m.tx.IsActive()

	for _, key := range keys {
		if txActive {
			if rec, ok := m.tx.Get(key); ok {
				out = append(out, rec)
				continue
			}
		}
		if m.cache != nil {
			if rec, ok := m.cache.HitTest(key); ok {
				out = append(out, rec)
				continue
			}
		}
		missing[key] = struct{}{}
	}

	if len(missing) == 0 {
		return out, nil
	}

	residual := make([]record.Key, 0, len(missing))
	for key := range missing {
		residual = append(residual, key)
	}

	recs, err := ticToc(m, metricReadTimeMs, func() ([]record.Record, error) {
		return m.db.BatchGet(ctx, residual)
	})
	if err != nil {
		return nil, err
	}
	out = append(out, recs...)
	m.incrementMetric(metricBatchGet)
	return out, nil
}

// FlushCache drops every entry from the cache, if one is configured.
func (m *Manager) FlushCache() {
	if m.cache != nil {
		m.cache.Flush()
	}
}

// GetUserState resolves username's best state under flag, merging a
// persisted value with any staged transaction value per the override
// table in record.Overrides.
func (m *Manager) GetUserState(ctx context.Context, username record.Label, flag record.RetrievalFlag) (*record.ValueState, error) {
	dbState, err := ticToc(m, metricReadTimeMs, func() (*record.ValueState, error) {
		state, err := m.db.GetUserState(ctx, username, flag)
		if storage.IsNotFound(err) {
			return nil, nil
		}
		return state, err
	})
	if err != nil {
		return nil, err
	}
	m.incrementMetric(metricGetUserState)

	if m.tx.IsActive() {
		if txState, ok := m.tx.GetUserState(username, flag); ok {
			if dbState == nil {
				return txState, nil
			}
			if record.Overrides(dbState.Epoch, txState, flag) {
				return txState, nil
			}
			return dbState, nil
		}
	}

	if dbState == nil {
		return nil, storage.NotFoundf("value state for user %q", username)
	}
	if m.cache != nil {
		m.cache.Put(dbState)
	}
	return dbState, nil
}

// GetUserData returns every state known for username, merging persisted
// states with any staged transaction states keyed by epoch (the
// transaction value wins on a shared epoch).
func (m *Manager) GetUserData(ctx context.Context, username record.Label) (*record.KeyData, error) {
	dbData, err := ticToc(m, metricReadTimeMs, func() (*record.KeyData, error) {
		data, err := m.db.GetUserData(ctx, username)
		if storage.IsNotFound(err) {
			return &record.KeyData{}, nil
		}
		return data, err
	})
	if err != nil {
		return nil, err
	}
	m.incrementMetric(metricGetUserData)

	if !m.tx.IsActive() {
		return dbData, nil
	}

	byEpoch := make(map[uint64]*record.ValueState, len(dbData.States))
	for _, s := range dbData.States {
		byEpoch[s.Epoch] = s
	}
	for _, txData := range m.tx.GetUsersData([]record.Label{username}) {
		for _, s := range txData {
			byEpoch[s.Epoch] = s
		}
	}

	merged := make([]*record.ValueState, 0, len(byEpoch))
	for _, s := range byEpoch {
		merged = append(merged, s)
	}
	return &record.KeyData{States: merged}, nil
}

// GetUserStateVersions resolves, per requested username, the best
// (epoch, value) pair under flag, merging persisted data with any
// staged transaction states.
func (m *Manager) GetUserStateVersions(ctx context.Context, usernames []record.Label, flag record.RetrievalFlag) (map[record.Label]storage.VersionValue, error) {
	data, err := ticToc(m, metricReadTimeMs, func() (map[record.Label]storage.VersionValue, error) {
		return m.db.GetUserStateVersions(ctx, usernames, flag)
	})
	if err != nil {
		return nil, err
	}
	m.incrementMetric(metricGetUserStateVersions)

	if !m.tx.IsActive() {
		return data, nil
	}

	if data == nil {
		data = make(map[record.Label]storage.VersionValue, len(usernames))
	}
	for label, txState := range m.tx.GetUsersStates(usernames, flag) {
		if existing, ok := data[label]; ok {
			if record.Overrides(existing.Epoch, txState, flag) {
				data[label] = storage.VersionValue{Epoch: txState.Epoch, PlaintextVal: txState.PlaintextVal}
			}
			continue
		}
		data[label] = storage.VersionValue{Epoch: txState.Epoch, PlaintextVal: txState.PlaintextVal}
	}
	return data, nil
}

// TombstoneValueStates rewrites the plaintext value of each identified
// ValueState to the fixed tombstone marker, preserving every identity
// field. An empty key set is a no-op.
func (m *Manager) TombstoneValueStates(ctx context.Context, keys []record.ValueStateKey) error {
	if len(keys) == 0 {
		return nil
	}

	storageKeys := make([]record.Key, len(keys))
	for i, k := range keys {
		storageKeys[i] = k.StorageKey()
	}

	recs, err := m.BatchGet(ctx, storageKeys)
	if err != nil {
		return err
	}

	tombstoned := make([]record.Record, 0, len(recs))
	for _, rec := range recs {
		vs, ok := rec.(*record.ValueState)
		if !ok {
			continue
		}
		tombstoned = append(tombstoned, &record.ValueState{
			Username:     vs.Username,
			Epoch:        vs.Epoch,
			Version:      vs.Version,
			Label:        vs.Label,
			PlaintextVal: record.Tombstone,
		})
	}
	if len(tombstoned) == 0 {
		return nil
	}

	if err := m.BatchSet(ctx, tombstoned); err != nil {
		return err
	}
	m.incrementMetric(metricTombstone)
	return nil
}

// LogMetrics reports the mediator's ten counters, plus the cache's and
// transaction buffer's own sub-reports, at the given level.
func (m *Manager) LogMetrics(level zerolog.Level) {
	if m.cache != nil {
		m.cache.LogMetrics(level)
	}
	m.tx.LogMetrics(level)

	snap := m.metrics.snapshot()
	event := m.logger.WithLevel(level)
	for name, value := range snap {
		event = event.Uint64(name, value)
	}
	event.Msg("storage mediator metrics")
}

// MetricsSnapshot returns a point-in-time copy of the ten counters, for
// external exporters such as pkg/metrics.
func (m *Manager) MetricsSnapshot() Snapshot {
	return m.metrics.snapshot()
}

// CacheStats returns the underlying cache's hit/miss/size counters. ok
// is false when this Manager was built without a cache.
func (m *Manager) CacheStats() (hits, misses uint64, entries int, bytes int64, ok bool) {
	if m.cache == nil {
		return 0, 0, 0, 0, false
	}
	hits, misses, entries, bytes = m.cache.Stats()
	return hits, misses, entries, bytes, true
}

func (m *Manager) incrementMetric(met metric) {
	if !m.metricsEnabled {
		return
	}
	m.metrics[met].Add(1)
}

// ticToc runs f, and when metrics are enabled, adds its elapsed
// milliseconds to the counter at met. It is a free function (not a
// method) because Go methods cannot carry their own type parameters.
func ticToc[T any](m *Manager, met metric, f func() (T, error)) (T, error) {
	if !m.metricsEnabled {
		return f()
	}
	start := time.Now()
	out, err := f()
	m.metrics[met].Add(uint64(time.Since(start).Milliseconds()))
	return out, err
}
