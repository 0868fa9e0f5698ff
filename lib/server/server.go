package server

import (
	"context"
	"errors"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ErrVersionConflict is returned by AddVersion when the supplied parent is
// not the current chain tip. The caller must fetch and apply the missing
// child versions, then try again.
var ErrVersionConflict = errors.New("server: version conflict")

// Version is one element of the server's version chain.
type Version struct {
	ID      string `json:"id"`
	Parent  string `json:"parent"`
	Payload []byte `json:"payload"`
}

// Server is a remote (or remote-like) store for the version chain.
// Implementations must be usable from a single goroutine at a time; the
// sync client calls them while holding the replica's exclusive lock.
type Server interface {
	// AddVersion appends a version whose parent must be the current chain
	// tip and returns the new version id. ErrVersionConflict otherwise.
	AddVersion(ctx context.Context, parent string, payload []byte) (string, error)

	// GetChildVersion returns the version whose parent is the given id.
	// The boolean indicates whether such a version exists.
	GetChildVersion(ctx context.Context, parent string) (Version, bool, error)
}
