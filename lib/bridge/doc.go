// Package bridge is the outermost layer of the task engine: the entry
// points foreign callers reach through a generated binding. Everything a
// caller can do goes through a handle obtained from Initialize, and every
// entry point follows the same shape:
//
//  1. parse and validate the caller-supplied arguments
//  2. resolve the handle to a guarded replica
//  3. acquire the replica's lock within a bound
//  4. run the operation on the replica
//  5. release the lock, then build the result outside of it
//
// No entry point ever panics across the boundary and no entry point ever
// blocks indefinitely. All failures, whatever their cause, collapse into
// the operation's sentinel value: false for booleans, an empty slice for
// lists, an empty string for strings. The cause is logged and counted but
// never surfaced, because the callers on the far side cannot unwind Go
// errors. Sync is the one exception with an error channel: it returns
// "SUCCESS" or an "ERROR: ..." string.
//
// Thread-safety: every method may be called from any goroutine (or
// foreign thread) at any time, including concurrently with Destroy.
package bridge
