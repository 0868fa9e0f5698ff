// Package server defines the synchronization server abstraction used by
// the replica's sync client, plus the available backends.
//
// A server stores an append-only chain of versions. Each version has a
// parent (the empty string for the first version), an opaque payload (a
// batch of serialized operations, usually sealed, see Sealer) and a
// server-assigned id. Appending is compare-and-swap on the chain tip:
// AddVersion fails with ErrVersionConflict when the given parent is no
// longer the latest version, which tells the client to download and apply
// the missing versions first.
//
// Backends:
//   - local: a directory on the local filesystem, used by tests and for
//     file-based synchronization between replicas on one machine
//   - aws: an S3 bucket, one object per version
//
// Server configurations arrive at the boundary as JSON documents; see
// ParseConfig.
package server
