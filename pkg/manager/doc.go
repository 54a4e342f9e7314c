/*
Package manager implements the storage mediator: the single entry point
through which a directory algorithm reads and writes records, composing
an optional cache, a transaction buffer, and a backing store behind one
Database-shaped API.

Read precedence is transaction, then cache, then store. Write precedence
routes into the open transaction if one is active, else into the cache
and store directly. Clone gives a caller its own transaction buffer
while continuing to share the cache, store, and metric counters of the
Manager it was cloned from.
*/
package manager
