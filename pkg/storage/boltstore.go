package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cuemby/akdstore/pkg/record"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketDirectoryMetadata = []byte("directory_metadata")
	bucketTreeNodes         = []byte("tree_nodes")
	bucketValueStates       = []byte("value_states")

	allBuckets = [][]byte{bucketDirectoryMetadata, bucketTreeNodes, bucketValueStates}
)

// BoltStore is a Database backed by a single BoltDB (bbolt) file, with
// one bucket per record kind.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) a bbolt-backed Database at
// <dataDir>/akd.db.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "akd.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, Connectionf(err, "open bolt database")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, Otherf(err, "initialize bolt buckets")
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(_ context.Context, key record.Key) (record.Record, error) {
	bucket := bucketForKind(key.Kind)
	if bucket == nil {
		return nil, Otherf(nil, "unknown record kind %v", key.Kind)
	}

	var rec record.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key.ID))
		if data == nil {
			return NotFoundf("record %v", key)
		}
		decoded, err := decodeRecord(data)
		if err != nil {
			return Serializationf(err, "decode record %v", key)
		}
		rec = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *BoltStore) BatchGet(_ context.Context, keys []record.Key) ([]record.Record, error) {
	out := make([]record.Record, 0, len(keys))
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, key := range keys {
			bucket := bucketForKind(key.Kind)
			if bucket == nil {
				continue
			}
			data := tx.Bucket(bucket).Get([]byte(key.ID))
			if data == nil {
				continue
			}
			rec, err := decodeRecord(data)
			if err != nil {
				return Serializationf(err, "decode record %v", key)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) Set(_ context.Context, rec record.Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putLocked(tx, rec)
	})
}

// BatchSet writes every record in a single bbolt transaction. mode is
// accepted for interface symmetry with other drivers that branch on it;
// BoltDB's transaction is atomic regardless of mode.
func (s *BoltStore) BatchSet(_ context.Context, recs []record.Record, _ SetMode) error {
	if len(recs) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, rec := range recs {
			if err := putLocked(tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func putLocked(tx *bolt.Tx, rec record.Record) error {
	key := rec.StorageKey()
	bucket := bucketForKind(key.Kind)
	if bucket == nil {
		return Otherf(nil, "unknown record kind %v", key.Kind)
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return Serializationf(err, "encode record %v", key)
	}
	if err := tx.Bucket(bucket).Put([]byte(key.ID), data); err != nil {
		return Otherf(err, "put record %v", key)
	}
	return nil
}

func (s *BoltStore) GetUserState(ctx context.Context, username record.Label, flag record.RetrievalFlag) (*record.ValueState, error) {
	states, err := s.scanUserStates(username)
	if err != nil {
		return nil, err
	}
	best := record.SelectByFlag(states, flag)
	if best == nil {
		return nil, NotFoundf("value state for %s", username)
	}
	return best, nil
}

func (s *BoltStore) GetUserData(_ context.Context, username record.Label) (*record.KeyData, error) {
	states, err := s.scanUserStates(username)
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return nil, NotFoundf("value states for %s", username)
	}
	return &record.KeyData{States: states}, nil
}

func (s *BoltStore) GetUserStateVersions(_ context.Context, usernames []record.Label, flag record.RetrievalFlag) (map[record.Label]VersionValue, error) {
	out := make(map[record.Label]VersionValue, len(usernames))
	for _, u := range usernames {
		states, err := s.scanUserStates(u)
		if err != nil {
			return nil, err
		}
		if best := record.SelectByFlag(states, flag); best != nil {
			out[u] = VersionValue{Epoch: best.Epoch, PlaintextVal: best.PlaintextVal}
		}
	}
	return out, nil
}

// scanUserStates performs a full bucket scan filtered by username. The
// value-states bucket is keyed by "username:epoch", so there is no
// secondary index to consult.
func (s *BoltStore) scanUserStates(username record.Label) ([]*record.ValueState, error) {
	var states []*record.ValueState
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketValueStates).ForEach(func(_, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return fmt.Errorf("decode value state: %w", err)
			}
			vs, ok := rec.(*record.ValueState)
			if ok && vs.Username == username {
				states = append(states, vs)
			}
			return nil
		})
	})
	if err != nil {
		return nil, Otherf(err, "scan value states for %s", username)
	}
	return states, nil
}
