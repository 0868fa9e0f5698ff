// Package replica implements the task store engine: property-map tasks,
// a committed-operation log with undo points, a 1-based working set of
// pending tasks, and a synchronization client that exchanges operation
// batches with a remote server (see lib/server).
//
// A task is a flat map of string properties. Well-known properties are
// "description", "status", "entry" and "modified"; tags are stored as
// "tag_<name>" markers and annotations as "annotation_<unix-ts>" entries.
// Everything else is an opaque user property.
//
// Every mutation is expressed as a storage.Operation and committed through
// CommitOperations, which applies the change to storage and appends it to
// the unsynchronized log. The log serves two consumers: UndoOperations
// walks it backwards to the latest undo point, and Sync uploads it as a
// version payload.
//
// Thread Safety:
//
//	A Replica is NOT safe for concurrent use. Callers must serialize all
//	access; the lib/guard and lib/registry packages exist for exactly
//	that purpose and no other component may touch a Replica directly.
package replica
