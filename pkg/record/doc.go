/*
Package record defines the storage mediator's data model: the closed set
of persistable record kinds (DirectoryMetadata, TreeNode, ValueState),
the Key type used to address them, and the five-variant RetrievalFlag
used to select a user's value states by version or epoch.

Nothing in this package talks to the cache, the transaction buffer, or a
backing store - those consume Record and Key as opaque values.
*/
package record
