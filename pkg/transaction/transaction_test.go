package transaction

import (
	"testing"

	"github.com/cuemby/akdstore/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginIsIdempotent(t *testing.T) {
	b := New()
	assert.True(t, b.Begin())
	assert.False(t, b.Begin())
	assert.True(t, b.IsActive())
}

func TestSetOverwritesSameKeyLastWriteWins(t *testing.T) {
	b := New()
	b.Begin()

	r1 := &record.DirectoryMetadata{Directory: "d1", LatestEpoch: 1}
	r2 := &record.DirectoryMetadata{Directory: "d1", LatestEpoch: 2}
	b.Set(r1)
	b.Set(r2)

	got, ok := b.Get(r1.StorageKey())
	require.True(t, ok)
	assert.Equal(t, uint64(2), got.(*record.DirectoryMetadata).LatestEpoch)
}

func TestCommitEndsWithMostRecentlyWrittenKey(t *testing.T) {
	b := New()
	b.Begin()

	azks1 := &record.DirectoryMetadata{Directory: "d1", LatestEpoch: 1}
	tree := &record.TreeNode{Directory: "d1", Label: record.TreeLabel{Bits: []byte{1}, Len: 1}}
	azks2 := &record.DirectoryMetadata{Directory: "d1", LatestEpoch: 2}

	b.Set(azks1)
	b.Set(tree)
	b.Set(azks2) // re-staging the same key as azks1 should move it to the tail

	recs := b.Commit()
	require.Len(t, recs, 2)
	last, ok := recs[len(recs)-1].(*record.DirectoryMetadata)
	require.True(t, ok)
	assert.Equal(t, uint64(2), last.LatestEpoch)
	assert.False(t, b.IsActive())
}

func TestCommitWithNoStagedWritesIsEmpty(t *testing.T) {
	b := New()
	b.Begin()
	recs := b.Commit()
	assert.Empty(t, recs)
}

func TestRollbackDiscardsStagedWrites(t *testing.T) {
	b := New()
	b.Begin()
	rec := &record.DirectoryMetadata{Directory: "d1", LatestEpoch: 1}
	b.Set(rec)

	b.Rollback()

	assert.False(t, b.IsActive())
	_, ok := b.Get(rec.StorageKey())
	assert.False(t, ok)
}

func TestGetUserStateSelectsByFlag(t *testing.T) {
	b := New()
	b.Begin()

	u := record.Label("alice")
	b.Set(&record.ValueState{Username: u, Epoch: 3, Version: 3, PlaintextVal: record.Value("v3")})
	b.Set(&record.ValueState{Username: u, Epoch: 5, Version: 5, PlaintextVal: record.Value("v5")})

	got, ok := b.GetUserState(u, record.MaxEpoch())
	require.True(t, ok)
	assert.Equal(t, uint64(5), got.Epoch)

	got, ok = b.GetUserState(u, record.MinEpoch())
	require.True(t, ok)
	assert.Equal(t, uint64(3), got.Epoch)

	got, ok = b.GetUserState(u, record.SpecificVersion(3))
	require.True(t, ok)
	assert.Equal(t, uint64(3), got.Version)
}

func TestGetUserStateInactiveBufferYieldsNothing(t *testing.T) {
	b := New()
	_, ok := b.GetUserState(record.Label("alice"), record.MaxEpoch())
	assert.False(t, ok)
}

func TestGetUsersStatesPerUser(t *testing.T) {
	b := New()
	b.Begin()

	b.Set(&record.ValueState{Username: "alice", Epoch: 1, Version: 1})
	b.Set(&record.ValueState{Username: "bob", Epoch: 2, Version: 1})

	out := b.GetUsersStates([]record.Label{"alice", "bob", "carol"}, record.MaxEpoch())
	assert.Len(t, out, 2)
	assert.Equal(t, uint64(1), out["alice"].Epoch)
	assert.Equal(t, uint64(2), out["bob"].Epoch)
}
