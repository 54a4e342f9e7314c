/*
Package transaction implements the storage mediator's single-writer
staging area: an in-memory Idle/Active buffer of record writes that
becomes visible to readers only once drained by Commit.

Writing the same key twice keeps only the most recent write, moved to
the tail of the buffer's write order - so a directory algorithm that
stages updates and then stages its DirectoryMetadata commit pointer last
is guaranteed Commit returns that pointer as the final record, which
pkg/manager requires to accept a commit.
*/
package transaction
