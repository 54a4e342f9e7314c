package storage

import (
	"context"

	"github.com/cuemby/akdstore/pkg/record"
)

// SetMode tags a batch write so a Database implementation may optimize
// its write path, but must behave correctly under either value.
type SetMode int

const (
	// SetGeneral is an ordinary batched write.
	SetGeneral SetMode = iota
	// SetTransactionCommit tags a batch as the drained contents of a
	// committed transaction, whose final record is a DirectoryMetadata.
	SetTransactionCommit
)

// VersionValue is the (epoch, value) pair returned per user label by
// GetUserStateVersions.
type VersionValue struct {
	Epoch        uint64
	PlaintextVal record.Value
}

// Database is the backing store contract. All operations are fallible
// with StorageError; NotFound is the expected outcome of a miss on a
// single-key or single-user lookup.
type Database interface {
	Get(ctx context.Context, key record.Key) (record.Record, error)
	BatchGet(ctx context.Context, keys []record.Key) ([]record.Record, error)
	Set(ctx context.Context, rec record.Record) error
	BatchSet(ctx context.Context, recs []record.Record, mode SetMode) error

	GetUserState(ctx context.Context, username record.Label, flag record.RetrievalFlag) (*record.ValueState, error)
	GetUserData(ctx context.Context, username record.Label) (*record.KeyData, error)
	GetUserStateVersions(ctx context.Context, usernames []record.Label, flag record.RetrievalFlag) (map[record.Label]VersionValue, error)
}
