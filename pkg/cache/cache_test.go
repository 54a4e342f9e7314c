package cache

import (
	"testing"
	"time"

	"github.com/cuemby/akdstore/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(lifetime, cleanFreq time.Duration) *Cache {
	return New(Config{ItemLifetime: lifetime, LimitBytes: 1 << 20, CleanFrequency: cleanFreq})
}

func TestCachePutAndHitTest(t *testing.T) {
	c := newTestCache(time.Hour, time.Hour)
	defer c.Close()

	rec := &record.DirectoryMetadata{Directory: "d1", LatestEpoch: 1}
	c.Put(rec)

	got, ok := c.HitTest(rec.StorageKey())
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestCacheMissOnUnknownKey(t *testing.T) {
	c := newTestCache(time.Hour, time.Hour)
	defer c.Close()

	_, ok := c.HitTest(record.DirectoryMetadataKey("nope"))
	assert.False(t, ok)
}

func TestCacheEntryExpiresAfterTTL(t *testing.T) {
	c := newTestCache(10*time.Millisecond, time.Hour)
	defer c.Close()

	rec := &record.DirectoryMetadata{Directory: "d1", LatestEpoch: 1}
	c.Put(rec)

	time.Sleep(30 * time.Millisecond)
	_, ok := c.HitTest(rec.StorageKey())
	assert.False(t, ok)
}

func TestCacheFlushDropsEverything(t *testing.T) {
	c := newTestCache(time.Hour, time.Hour)
	defer c.Close()

	c.Put(&record.DirectoryMetadata{Directory: "d1", LatestEpoch: 1})
	c.Flush()

	_, ok := c.HitTest(record.DirectoryMetadataKey("d1"))
	assert.False(t, ok)
}

func TestDisableCleanPreventsExpiry(t *testing.T) {
	c := newTestCache(10*time.Millisecond, time.Hour)
	defer c.Close()

	rec := &record.DirectoryMetadata{Directory: "d1", LatestEpoch: 1}
	c.Put(rec)
	c.DisableClean()

	time.Sleep(30 * time.Millisecond)
	_, ok := c.HitTest(rec.StorageKey())
	assert.True(t, ok, "entries must not expire while cleaning is disabled")

	c.EnableClean()
}

func TestEnableCleanResetsAgeForEntriesAdmittedWhilePaused(t *testing.T) {
	c := newTestCache(20*time.Millisecond, time.Hour)
	defer c.Close()

	c.DisableClean()
	time.Sleep(30 * time.Millisecond) // longer than the TTL, but paused
	rec := &record.DirectoryMetadata{Directory: "d1", LatestEpoch: 1}
	c.Put(rec)
	c.EnableClean()

	_, ok := c.HitTest(rec.StorageKey())
	assert.True(t, ok, "entries admitted during a paused window must not be considered already expired")
}

func TestNestedDisableCleanRequiresMatchingEnable(t *testing.T) {
	c := newTestCache(10*time.Millisecond, time.Hour)
	defer c.Close()

	rec := &record.DirectoryMetadata{Directory: "d1", LatestEpoch: 1}
	c.Put(rec)

	c.DisableClean()
	c.DisableClean()
	c.EnableClean()

	time.Sleep(30 * time.Millisecond)
	_, ok := c.HitTest(rec.StorageKey())
	assert.True(t, ok, "cleaning should remain paused until every DisableClean is matched")
}
