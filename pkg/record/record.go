// Package record defines the persistable record variants the storage
// mediator moves between the transaction buffer, the cache, and the
// backing store, along with the keys used to address them.
//
// Records are a closed tagged union. The mediator never introspects a
// record's content except to read LatestEpoch off a DirectoryMetadata on
// commit, and to rewrite PlaintextVal when tombstoning a ValueState.
package record

import (
	"encoding/hex"
	"fmt"
)

// Kind tags which variant a Record is.
type Kind int

const (
	KindUnknown Kind = iota
	KindDirectoryMetadata
	KindTreeNode
	KindValueState
)

func (k Kind) String() string {
	switch k {
	case KindDirectoryMetadata:
		return "directory_metadata"
	case KindTreeNode:
		return "tree_node"
	case KindValueState:
		return "value_state"
	default:
		return "unknown"
	}
}

// Key is the canonical, hashable, equality-comparable, cloneable address
// of a Record. Collapsing (RecordKind, StorageKey) into a single
// comparable struct (rather than a per-kind associated type) is the
// "closed tagged variant plus compile-time key derivation" option the
// mediator's generic-dispatch design allows.
type Key struct {
	Kind Kind
	ID   string
}

// Record is implemented by every persistable record variant.
type Record interface {
	Kind() Kind
	StorageKey() Key
	// ApproxSize estimates the in-memory footprint in bytes, used by the
	// cache's soft byte budget. It need only be consistent, not exact.
	ApproxSize() int
}

// Label identifies a user within a directory (AkdLabel in the original
// algorithm). Represented as a Go string, which is just a byte sequence,
// so it stays hashable and comparable without extra plumbing.
type Label string

// Value is opaque user-supplied content (AkdValue).
type Value []byte

// TreeLabel addresses an interior node of the append-only tree. Opaque
// to the mediator beyond its role as part of a TreeNode's identity.
type TreeLabel struct {
	Bits []byte
	Len  uint32
}

func (l TreeLabel) String() string {
	return fmt.Sprintf("%s/%d", hex.EncodeToString(l.Bits), l.Len)
}

// Clone returns a deep copy whose Bits slice does not share a backing
// array with l.
func (l TreeLabel) Clone() TreeLabel {
	bits := make([]byte, len(l.Bits))
	copy(bits, l.Bits)
	return TreeLabel{Bits: bits, Len: l.Len}
}

const recordOverhead = 48 // rough struct + map-entry overhead per cached item

// DirectoryMetadata identifies a directory and carries its commit
// pointer. Exactly one live instance exists per directory; it must be
// the last record of any commit batch.
type DirectoryMetadata struct {
	Directory   string
	LatestEpoch uint64
}

func (d *DirectoryMetadata) Kind() Kind { return KindDirectoryMetadata }

func (d *DirectoryMetadata) StorageKey() Key {
	return Key{Kind: KindDirectoryMetadata, ID: d.Directory}
}

func (d *DirectoryMetadata) ApproxSize() int {
	return len(d.Directory) + 8 + recordOverhead
}

// DirectoryMetadataKey builds the Key for a directory's metadata record.
func DirectoryMetadataKey(directory string) Key {
	return Key{Kind: KindDirectoryMetadata, ID: directory}
}

// TreeNode is an interior node of the append-only tree. Its fields beyond
// identity are opaque to the mediator.
type TreeNode struct {
	Directory string
	Label     TreeLabel
	Epoch     uint64
	Hash      []byte
}

func (t *TreeNode) Kind() Kind { return KindTreeNode }

func (t *TreeNode) StorageKey() Key {
	return Key{Kind: KindTreeNode, ID: t.Directory + "/" + t.Label.String()}
}

func (t *TreeNode) ApproxSize() int {
	return len(t.Directory) + len(t.Label.Bits) + len(t.Hash) + 16 + recordOverhead
}

// TreeNodeKey builds the Key for a tree node.
func TreeNodeKey(directory string, label TreeLabel) Key {
	return Key{Kind: KindTreeNode, ID: directory + "/" + label.String()}
}

// ValueState is a user's value at a specific version. Uniqueness:
// (Username, Epoch) and (Username, Version) are each unique.
type ValueState struct {
	Username     Label
	Epoch        uint64
	Version      uint64
	Label        TreeLabel
	PlaintextVal Value
}

func (v *ValueState) Kind() Kind { return KindValueState }

func (v *ValueState) StorageKey() Key {
	return Key{Kind: KindValueState, ID: fmt.Sprintf("%s:%d", v.Username, v.Epoch)}
}

func (v *ValueState) ApproxSize() int {
	return len(v.Username) + len(v.PlaintextVal) + len(v.Label.Bits) + 24 + recordOverhead
}

// Clone returns a deep copy of the value state whose PlaintextVal and
// Label.Bits do not share backing arrays with v. The cache, the
// transaction buffer and tombstoning do not call it: they keep records
// as they are given.
func (v *ValueState) Clone() *ValueState {
	plaintext := make(Value, len(v.PlaintextVal))
	copy(plaintext, v.PlaintextVal)
	return &ValueState{
		Username:     v.Username,
		Epoch:        v.Epoch,
		Version:      v.Version,
		Label:        v.Label.Clone(),
		PlaintextVal: plaintext,
	}
}

// ValueStateKey addresses a single ValueState by (username, epoch).
type ValueStateKey struct {
	Username Label
	Epoch    uint64
}

// StorageKey builds the Key for a value state lookup by username+epoch.
func (k ValueStateKey) StorageKey() Key {
	return Key{Kind: KindValueState, ID: fmt.Sprintf("%s:%d", k.Username, k.Epoch)}
}

// KeyData bundles all value states retrieved for a single user.
type KeyData struct {
	States []*ValueState
}

// Tombstone is the fixed byte pattern substituted for PlaintextVal when a
// ValueState is tombstoned. Identity fields (Epoch, Version, Label,
// Username) are left unchanged.
var Tombstone = Value("__TOMBSTONED__")
