package transaction

import (
	"sync"

	"github.com/cuemby/akdstore/pkg/log"
	"github.com/cuemby/akdstore/pkg/record"
	"github.com/rs/zerolog"
)

type state int

const (
	stateIdle state = iota
	stateActive
)

// Buffer is the mediator's single-writer staging area. Writes are
// last-write-wins per key within one transaction; nothing is visible
// downstream until Commit drains the buffer.
type Buffer struct {
	mu     sync.Mutex
	state  state
	writes map[record.Key]record.Record
	// order preserves write order, with a key moved to the tail whenever
	// it is overwritten, so the most recently staged DirectoryMetadata
	// naturally ends up last - the position Commit requires of it.
	order  []record.Key
	logger zerolog.Logger
}

// New creates an idle transaction buffer.
func New() *Buffer {
	return &Buffer{
		writes: make(map[record.Key]record.Record),
		logger: log.WithComponent("transaction"),
	}
}

// Begin activates the buffer. It returns true if this call performed the
// Idle->Active transition, false if a transaction was already active
// (an idempotent no-op).
func (b *Buffer) Begin() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == stateActive {
		return false
	}
	b.state = stateActive
	return true
}

// IsActive reports whether a transaction is currently open.
func (b *Buffer) IsActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == stateActive
}

// Set stages a single write.
func (b *Buffer) Set(rec record.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setLocked(rec)
}

// BatchSet stages a batch of writes in order.
func (b *Buffer) BatchSet(recs []record.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range recs {
		b.setLocked(rec)
	}
}

func (b *Buffer) setLocked(rec record.Record) {
	key := rec.StorageKey()
	if _, exists := b.writes[key]; exists {
		b.removeFromOrderLocked(key)
	}
	b.writes[key] = rec
	b.order = append(b.order, key)
}

func (b *Buffer) removeFromOrderLocked(key record.Key) {
	for i, k := range b.order {
		if k == key {
			b.order = append(b.order[:i], b.order[i+1:]...)
			return
		}
	}
}

// Get returns the staged record for key, if any. It yields a result only
// while the buffer is active.
func (b *Buffer) Get(key record.Key) (record.Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != stateActive {
		return nil, false
	}
	rec, ok := b.writes[key]
	return rec, ok
}

// GetUserState returns the staged ValueState best matching flag among
// this user's staged states, if the buffer is active.
func (b *Buffer) GetUserState(username record.Label, flag record.RetrievalFlag) (*record.ValueState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != stateActive {
		return nil, false
	}
	best := record.SelectByFlag(b.statesForLocked(username), flag)
	return best, best != nil
}

// GetUsersData returns every staged ValueState for each requested user,
// regardless of transaction state (callers merge it only when active).
func (b *Buffer) GetUsersData(usernames []record.Label) map[record.Label][]*record.ValueState {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[record.Label][]*record.ValueState, len(usernames))
	for _, u := range usernames {
		if states := b.statesForLocked(u); len(states) > 0 {
			out[u] = states
		}
	}
	return out
}

// GetUsersStates returns, per requested user, the staged ValueState best
// matching flag.
func (b *Buffer) GetUsersStates(usernames []record.Label, flag record.RetrievalFlag) map[record.Label]*record.ValueState {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[record.Label]*record.ValueState, len(usernames))
	for _, u := range usernames {
		if best := record.SelectByFlag(b.statesForLocked(u), flag); best != nil {
			out[u] = best
		}
	}
	return out
}

func (b *Buffer) statesForLocked(username record.Label) []*record.ValueState {
	var states []*record.ValueState
	for _, rec := range b.writes {
		if vs, ok := rec.(*record.ValueState); ok && vs.Username == username {
			states = append(states, vs)
		}
	}
	return states
}

// Commit atomically clears the buffer and returns its staged contents in
// write order, with any repeated key's final write reflected at its last
// write's position. The caller (pkg/manager) is responsible for
// validating that the final record is a DirectoryMetadata.
func (b *Buffer) Commit() []record.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	recs := make([]record.Record, len(b.order))
	for i, key := range b.order {
		recs[i] = b.writes[key]
	}
	b.resetLocked()
	return recs
}

// Rollback discards the buffer without returning its contents.
func (b *Buffer) Rollback() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

func (b *Buffer) resetLocked() {
	b.writes = make(map[record.Key]record.Record)
	b.order = nil
	b.state = stateIdle
}

// LogMetrics reports whether a transaction is active and how many
// records are currently staged.
func (b *Buffer) LogMetrics(level zerolog.Level) {
	b.mu.Lock()
	active := b.state == stateActive
	staged := len(b.writes)
	b.mu.Unlock()

	b.logger.WithLevel(level).
		Bool("active", active).
		Int("staged", staged).
		Msg("transaction buffer metrics")
}
