/*
Package cache implements the storage mediator's typed object cache: a
map from record.Key to record.Record with a per-entry TTL, a soft byte
budget enforced by a background sweep, and a pause/resume switch the
mediator uses to bridge open transactions.

# Why pausing exists

While a transaction is open, the mediator wants reads to bypass the
cache for keys staged in the transaction buffer, but still benefit from
the cache for untouched keys. Pausing (DisableClean/EnableClean) ensures
objects cached before the transaction are not silently evicted mid
transaction, and that reads cached during the transaction are not
immediately treated as stale once cleaning resumes - their age clock
restarts at the moment cleaning re-enables.

Eviction order when over budget is oldest-first; this is an
implementation detail, not part of the contract.
*/
package cache
