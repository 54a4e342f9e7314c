package manager

import (
	"context"
	"testing"

	"github.com/cuemby/akdstore/pkg/cache"
	"github.com/cuemby/akdstore/pkg/record"
	"github.com/cuemby/akdstore/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return New(storage.NewMemoryStore(), Config{MetricsEnabled: true})
}

func TestSetThenGetRoundTrips(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	meta := &record.DirectoryMetadata{Directory: "d1", LatestEpoch: 1}
	require.NoError(t, m.Set(ctx, meta))

	got, err := m.Get(ctx, meta.StorageKey())
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}

func TestGetPopulatesCacheOnStoreRead(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemoryStore()
	cacheCfg := cache.DefaultConfig()
	m := New(db, Config{MetricsEnabled: true, Cache: &cacheCfg})

	meta := &record.DirectoryMetadata{Directory: "d1", LatestEpoch: 1}
	require.NoError(t, db.Set(ctx, meta))

	_, err := m.Get(ctx, meta.StorageKey())
	require.NoError(t, err)

	// the second read is served by the cache, so the store read count stays 1
	_, err = m.Get(ctx, meta.StorageKey())
	require.NoError(t, err)

	snap := m.MetricsSnapshot()
	assert.Equal(t, uint64(1), snap["get"])
}

func TestBeginSetCommitRequiresDirectoryMetadataLast(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	require.True(t, m.BeginTransaction())
	require.NoError(t, m.Set(ctx, &record.TreeNode{Directory: "d1", Label: record.TreeLabel{Bits: []byte{1}, Len: 1}}))
	// no DirectoryMetadata staged: commit should fail
	err := m.CommitTransaction(ctx)
	assert.Error(t, err)
}

func TestBeginSetCommitSucceedsWithTrailingMetadata(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	require.True(t, m.BeginTransaction())
	tree := &record.TreeNode{Directory: "d1", Label: record.TreeLabel{Bits: []byte{1}, Len: 1}}
	meta := &record.DirectoryMetadata{Directory: "d1", LatestEpoch: 1}
	require.NoError(t, m.Set(ctx, tree))
	require.NoError(t, m.Set(ctx, meta))

	require.NoError(t, m.CommitTransaction(ctx))
	assert.False(t, m.IsTransactionActive())

	got, err := m.Get(ctx, meta.StorageKey())
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}

func TestEmptyCommitTouchesNothing(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	m.BeginTransaction()
	require.NoError(t, m.CommitTransaction(ctx))
	assert.Equal(t, uint64(0), m.MetricsSnapshot()["batch_set"])
}

func TestRollbackDiscardsStagedWrites(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	m.BeginTransaction()
	meta := &record.DirectoryMetadata{Directory: "d1", LatestEpoch: 1}
	require.NoError(t, m.Set(ctx, meta))
	require.NoError(t, m.RollbackTransaction())

	_, err := m.Get(ctx, meta.StorageKey())
	assert.True(t, storage.IsNotFound(err))
}

func TestGetUserStateMergesTransactionOverDb(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	u := record.Label("alice")
	require.NoError(t, m.Set(ctx, &record.ValueState{Username: u, Epoch: 1, Version: 1, PlaintextVal: record.Value("v1")}))

	m.BeginTransaction()
	require.NoError(t, m.Set(ctx, &record.ValueState{Username: u, Epoch: 2, Version: 2, PlaintextVal: record.Value("v2")}))

	got, err := m.GetUserState(ctx, u, record.MaxEpoch())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Epoch)
}

func TestGetUserStateTransactionLeqEpochDoesNotOverrideNewerDb(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	u := record.Label("alice")
	require.NoError(t, m.Set(ctx, &record.ValueState{Username: u, Epoch: 5, Version: 5, PlaintextVal: record.Value("v5")}))

	m.BeginTransaction()
	require.NoError(t, m.Set(ctx, &record.ValueState{Username: u, Epoch: 2, Version: 2, PlaintextVal: record.Value("v2")}))

	got, err := m.GetUserState(ctx, u, record.LeqEpoch(10))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.Epoch)
}

func TestGetUserDataMergesByEpoch(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	u := record.Label("alice")
	require.NoError(t, m.Set(ctx, &record.ValueState{Username: u, Epoch: 1, Version: 1}))
	require.NoError(t, m.Set(ctx, &record.ValueState{Username: u, Epoch: 2, Version: 2}))

	m.BeginTransaction()
	require.NoError(t, m.Set(ctx, &record.ValueState{Username: u, Epoch: 2, Version: 99}))

	data, err := m.GetUserData(ctx, u)
	require.NoError(t, err)
	require.Len(t, data.States, 2)

	byEpoch := make(map[uint64]*record.ValueState)
	for _, s := range data.States {
		byEpoch[s.Epoch] = s
	}
	assert.Equal(t, uint64(99), byEpoch[2].Version)
}

func TestTombstoneValueStatesRewritesPlaintext(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	u := record.Label("alice")
	vs := &record.ValueState{Username: u, Epoch: 1, Version: 1, PlaintextVal: record.Value("secret")}
	require.NoError(t, m.Set(ctx, vs))

	err := m.TombstoneValueStates(ctx, []record.ValueStateKey{{Username: u, Epoch: 1}})
	require.NoError(t, err)

	got, err := m.Get(ctx, vs.StorageKey())
	require.NoError(t, err)
	tombstoned := got.(*record.ValueState)
	assert.Equal(t, record.Tombstone, tombstoned.PlaintextVal)
	assert.Equal(t, u, tombstoned.Username)
	assert.Equal(t, uint64(1), tombstoned.Version)
}

func TestTombstoneValueStatesEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	assert.NoError(t, m.TombstoneValueStates(ctx, nil))
}

func TestCloneHasOwnTransactionBuffer(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	m.BeginTransaction()
	require.NoError(t, m.Set(ctx, &record.DirectoryMetadata{Directory: "d1", LatestEpoch: 1}))

	clone := m.Clone()
	assert.False(t, clone.IsTransactionActive())
	assert.True(t, m.IsTransactionActive())
}

func TestFlushCacheNoCacheConfiguredIsNoop(t *testing.T) {
	m := newTestManager()
	assert.NotPanics(t, func() { m.FlushCache() })
}
