package guard

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultTimeout is the standard acquisition bound applied by callers that
// have no reason to choose their own.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when the lock could not be acquired within
	// the bound. The guard stays usable for future acquisitions.
	ErrTimeout = errors.New("guard: lock acquisition timed out")

	// ErrUnusable is returned once revalidation after a poisoning has
	// failed. The condition is terminal.
	ErrUnusable = errors.New("guard: instance is unusable")

	// ErrPanicked is returned by With when the guarded operation
	// panicked. The panic does not propagate; the guard is poisoned.
	ErrPanicked = errors.New("guard: operation panicked")
)

// Lock states. Locked/Unlocked live in the semaphore channel; the state
// word only tracks the poison lifecycle.
const (
	stateClean int32 = iota
	statePoisoned
	stateUnusable
)

// Guard wraps one value behind an exclusive-access lock with bounded
// acquisition. The zero value is not usable; construct with New.
type Guard[T any] struct {
	sem      chan struct{}
	value    T
	state    atomic.Int32
	validate func(T) error
	logger   *slog.Logger
}

// New creates an unlocked guard around value. validate is the probe run
// when recovering from a poisoned lock; a nil validate accepts the value
// unconditionally.
func New[T any](value T, validate func(T) error) *Guard[T] {
	return &Guard[T]{
		sem:      make(chan struct{}, 1),
		value:    value,
		validate: validate,
		logger:   slog.Default().With("component", "guard"),
	}
}

// lockSem blocks until the semaphore is acquired or the bound expires.
func (g *Guard[T]) lockSem(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case g.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrTimeout
	}
}

func (g *Guard[T]) unlockSem() { <-g.sem }

// acquire takes the lock within the bound and settles the poison state.
func (g *Guard[T]) acquire(timeout time.Duration) error {
	// Fast fail; terminal state never reverts, no need to queue.
	if g.state.Load() == stateUnusable {
		return ErrUnusable
	}
	if err := g.lockSem(timeout); err != nil {
		return err
	}

	switch g.state.Load() {
	case stateUnusable:
		g.unlockSem()
		return ErrUnusable
	case statePoisoned:
		if g.validate != nil {
			if err := g.validate(g.value); err != nil {
				g.state.Store(stateUnusable)
				g.unlockSem()
				g.logger.Error("poisoned lock revalidation failed, instance retired", "error", err)
				return fmt.Errorf("%w: %v", ErrUnusable, err)
			}
		}
		g.state.Store(stateClean)
		g.logger.Warn("recovered poisoned lock")
	}
	return nil
}

// With runs fn with exclusive access to the value, waiting at most timeout
// for the lock. The lock is released on every exit path; a panic in fn is
// recovered, poisons the guard and is reported as ErrPanicked.
func (g *Guard[T]) With(timeout time.Duration, op string, fn func(T) error) (err error) {
	if err := g.acquire(timeout); err != nil {
		return err
	}
	defer func() {
		if rec := recover(); rec != nil {
			// Unusable is terminal; a retire may have condemned the guard
			// while this holder was still running.
			g.state.CompareAndSwap(stateClean, statePoisoned)
			g.unlockSem()
			g.logger.Error("operation panicked while holding lock", "op", op, "panic", rec)
			err = fmt.Errorf("%w: %s: %v", ErrPanicked, op, rec)
			return
		}
		g.unlockSem()
	}()
	return fn(g.value)
}

// Retire permanently marks the guard unusable and, once the lock is won
// within the bound, returns the value for teardown. Retire skips the
// revalidation probe: the caller is about to dispose of the value and
// only needs proof that no other holder exists. On ErrTimeout the guard
// is unusable all the same; the value is withheld because the current
// holder is still working on it.
func (g *Guard[T]) Retire(timeout time.Duration) (T, error) {
	var zero T
	if err := g.lockSem(timeout); err != nil {
		g.state.Store(stateUnusable)
		return zero, err
	}
	if g.state.Swap(stateUnusable) == stateUnusable {
		g.unlockSem()
		return zero, ErrUnusable
	}
	g.unlockSem()
	return g.value, nil
}
