// Package guard converts a value that is not safe for concurrent use into
// one that is safe for serialized concurrent access: a Guard owns exactly
// one value and one exclusive-access lock with a bounded acquisition wait.
//
// The lock walks a small state machine:
//
//	Unlocked -> Locked     acquisition succeeds within the bound
//	Locked   -> Unlocked   release, including release after a fault
//	Locked   -> Poisoned   the holder panicked while holding the lock
//	Poisoned -> Unlocked   the next acquirer revalidates the value
//	Poisoned -> unusable   revalidation fails; terminal, every later
//	                       acquisition fails with ErrUnusable
//
// Acquisition never blocks longer than the given bound: a held lock turns
// into ErrTimeout instead of an indefinite wait, trading strict
// never-fail semantics for bounded responsiveness on caller threads. The
// one piece of state shared between waiters is a one-slot semaphore
// channel, which gives eventual (not strict FIFO) fairness.
//
// A panic inside the guarded operation never escapes With: it is
// recovered, logged, and reported as ErrPanicked while the guard moves to
// Poisoned. The value itself is assumed structurally intact until the
// revalidation probe says otherwise.
package guard
