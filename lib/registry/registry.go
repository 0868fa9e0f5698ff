// Package registry provides the process-wide mapping from opaque integer
// handles to guarded instances. Callers on the far side of a foreign-call
// boundary cannot hold Go references, so they hold a Handle instead and
// resolve it through the registry on every call.
//
// Handles come from a monotonic counter and are never reused: a destroyed
// handle keeps failing lookups forever instead of aliasing a newer
// instance. Handle 0 is reserved as the "no instance" sentinel.
//
// The registry's own bookkeeping is a sharded concurrent map, so lookups
// never contend with each other or with any individual instance's
// exclusive-access lock. Serialization per instance is entirely the
// guard's business.
package registry

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tasksquire/taskbridge/lib/guard"
)

// InvalidHandle is the "no instance" sentinel. It is never allocated.
const InvalidHandle uint64 = 0

// ErrUnknownHandle is returned by Remove for handles that are not (or no
// longer) registered.
var ErrUnknownHandle = errors.New("registry: unknown handle")

// Registry maps handles to guarded instances of T.
type Registry[T any] struct {
	guards *xsync.MapOf[uint64, *guard.Guard[T]]
	next   atomic.Uint64
}

// New creates an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{
		guards: xsync.NewMapOf[uint64, *guard.Guard[T]](),
	}
}

// Create wraps value in a fresh guard, registers it under a new handle
// and returns the handle. validate is the guard's poison-recovery probe.
func (r *Registry[T]) Create(value T, validate func(T) error) uint64 {
	h := r.next.Add(1)
	r.guards.Store(h, guard.New(value, validate))
	return h
}

// Lookup resolves a handle to its guard. The boolean indicates whether
// the handle is registered. Lookup never blocks on any instance's lock.
func (r *Registry[T]) Lookup(h uint64) (*guard.Guard[T], bool) {
	return r.guards.Load(h)
}

// Remove unregisters a handle and returns the wrapped value for teardown.
// The entry is removed first, so no new lookups can succeed, then the
// guard is retired under the usual acquisition bound: removal waits for
// an in-flight holder but never indefinitely. On ErrTimeout the entry
// stays removed and the value is reclaimed when the holder releases.
func (r *Registry[T]) Remove(h uint64, timeout time.Duration) (T, error) {
	var zero T
	g, found := r.guards.LoadAndDelete(h)
	if !found {
		return zero, ErrUnknownHandle
	}
	return g.Retire(timeout)
}

// Len returns the number of live handles. Useful for leak checks.
func (r *Registry[T]) Len() int {
	return r.guards.Size()
}
