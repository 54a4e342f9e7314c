/*
Package storage defines the backing store contract the mediator
(pkg/manager) composes with a cache and a transaction buffer, plus two
Database implementations.

# Contract

Database is the async-shaped, fallible CRUD surface: Get/BatchGet,
Set/BatchSet (tagged General or TransactionCommit so an implementation
may special-case commit writes), and the three user-state queries
(GetUserState, GetUserData, GetUserStateVersions) that resolve a
record.RetrievalFlag against a user's stored value states. Every method
returns a *StorageError from the closed ErrorKind set; single-key and
single-user misses return ErrNotFound, which callers are expected to
fold into an "absent" sentinel rather than treat as exceptional.

# Implementations

BoltStore persists to a single BoltDB (bbolt) file with one bucket per
record.Kind: reads
go through db.View, writes through db.Update, and records are
JSON-encoded behind a kind-tagged envelope (codec.go) so a bucket scan
can decode heterogeneous payloads back into the correct concrete type.
User-state queries that are not a direct key lookup (GetUserState,
GetUserData, GetUserStateVersions) fall back to a full bucket scan
filtered by username, since the value-states bucket has no secondary index.

MemoryStore is a mutex-guarded map, used by tests and by callers that
accept losing state on restart. It keeps a secondary username index so
its user-state queries do not need a linear scan.

No on-disk format is owned by the mediator; BoltStore's JSON envelope is
this package's concern only, and MemoryStore owns none at all.
*/
package storage
