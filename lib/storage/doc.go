// Package storage defines the persistence interface for a task database.
// It is the lowest layer of the replica stack: a Storage holds the task
// property maps, the working set, the log of not-yet-synchronized
// operations, and the synchronization base version.
//
// The package focuses on:
//   - A unified interface for task-database backends
//   - An explicit, serializable operation type shared by the undo and
//     synchronization machinery
//   - A cheap integrity probe (Check) used for lock-poison recovery
//
// Key Components:
//
//   - Storage Interface: The core interface that all backends must satisfy.
//     It provides task operations (GetTask, SetTask, DeleteTask, AllTasks,
//     AllTaskIDs), working-set operations (WorkingSet, SetWorkingSet),
//     operation-log operations (AppendOperations, Operations,
//     TruncateOperations) and synchronization metadata (BaseVersion,
//     SetBaseVersion).
//
//   - Operation: A single recorded change to the task database. Operations
//     are appended by the replica on every commit, consumed backwards for
//     undo, and uploaded to a sync server as version payloads.
//
// Thread Safety:
//
//	Storage implementations are NOT required to be safe for concurrent use.
//	A Storage is owned by exactly one replica, and every replica is
//	serialized behind an exclusive-access guard (see lib/guard). Backends
//	that happen to be internally thread-safe gain nothing from it.
//
// Related Packages:
//
// The engines/memory package provides a volatile in-memory backend used by
// tests and throwaway replicas. The engines/sqlite package provides the
// durable on-disk backend used in production. The storagetest package
// provides a conformance suite that every backend must pass.
package storage
