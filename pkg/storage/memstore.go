package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/cuemby/akdstore/pkg/record"
)

// MemoryStore is an in-memory Database, primarily for tests and for
// callers that do not need persistence across process restarts.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[record.Key]record.Record
	// states indexes ValueState records by username for the user-query
	// methods, which are not addressable by a single Key.
	states map[record.Label][]*record.ValueState
}

// NewMemoryStore creates an empty in-memory backing store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:  make(map[record.Key]record.Record),
		states: make(map[record.Label][]*record.ValueState),
	}
}

func (m *MemoryStore) Get(_ context.Context, key record.Key) (record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.items[key]
	if !ok {
		return nil, NotFoundf("record %v", key)
	}
	return rec, nil
}

func (m *MemoryStore) BatchGet(_ context.Context, keys []record.Key) ([]record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]record.Record, 0, len(keys))
	for _, k := range keys {
		if rec, ok := m.items[k]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, rec record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(rec)
	return nil
}

func (m *MemoryStore) BatchSet(_ context.Context, recs []record.Record, _ SetMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range recs {
		m.putLocked(rec)
	}
	return nil
}

func (m *MemoryStore) putLocked(rec record.Record) {
	m.items[rec.StorageKey()] = rec
	if vs, ok := rec.(*record.ValueState); ok {
		m.indexStateLocked(vs)
	}
}

func (m *MemoryStore) indexStateLocked(vs *record.ValueState) {
	states := m.states[vs.Username]
	for i, existing := range states {
		if existing.Epoch == vs.Epoch {
			states[i] = vs
			m.states[vs.Username] = states
			return
		}
	}
	m.states[vs.Username] = append(states, vs)
}

func (m *MemoryStore) GetUserState(_ context.Context, username record.Label, flag record.RetrievalFlag) (*record.ValueState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	best := record.SelectByFlag(m.states[username], flag)
	if best == nil {
		return nil, NotFoundf("value state for %s", username)
	}
	return best, nil
}

func (m *MemoryStore) GetUserData(_ context.Context, username record.Label) (*record.KeyData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	states := m.states[username]
	if len(states) == 0 {
		return nil, NotFoundf("value states for %s", username)
	}
	out := make([]*record.ValueState, len(states))
	copy(out, states)
	sort.Slice(out, func(i, j int) bool { return out[i].Epoch < out[j].Epoch })
	return &record.KeyData{States: out}, nil
}

func (m *MemoryStore) GetUserStateVersions(_ context.Context, usernames []record.Label, flag record.RetrievalFlag) (map[record.Label]VersionValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[record.Label]VersionValue, len(usernames))
	for _, u := range usernames {
		best := record.SelectByFlag(m.states[u], flag)
		if best != nil {
			out[u] = VersionValue{Epoch: best.Epoch, PlaintextVal: best.PlaintextVal}
		}
	}
	return out, nil
}
