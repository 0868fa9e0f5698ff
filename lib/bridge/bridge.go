package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"

	"github.com/tasksquire/taskbridge/lib/guard"
	"github.com/tasksquire/taskbridge/lib/registry"
	"github.com/tasksquire/taskbridge/lib/replica"
	"github.com/tasksquire/taskbridge/lib/storage"
	"github.com/tasksquire/taskbridge/lib/storage/engines/sqlite"
)

// DefaultSyncTimeout bounds a full sync round trip. Sync talks to remote
// servers and legitimately holds the lock far longer than local
// operations, so it gets its own budget.
const DefaultSyncTimeout = 60 * time.Second

// errUnknownHandle marks calls against handles that were never issued or
// are already destroyed.
var errUnknownHandle = errors.New("bridge: unknown handle")

var (
	lockTimeouts   = metrics.NewCounter("taskbridge_lock_timeouts_total")
	invalidHandles = metrics.NewCounter("taskbridge_invalid_handles_total")
	panicsCaught   = metrics.NewCounter("taskbridge_panics_total")
)

// --------------------------------------------------------------------------
// Bridge
// --------------------------------------------------------------------------

// Bridge owns the handle registry and the timeout policy shared by all
// entry points. A process normally has exactly one.
type Bridge struct {
	registry    *registry.Registry[*replica.Replica]
	lockTimeout time.Duration
	syncTimeout time.Duration
	openStorage func(dir string) (storage.Storage, error)
	logger      *slog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLockTimeout overrides the per-operation lock acquisition bound.
func WithLockTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.lockTimeout = d }
}

// WithSyncTimeout overrides the sync budget.
func WithSyncTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.syncTimeout = d }
}

// WithStorageOpener overrides how Initialize opens storage backends.
func WithStorageOpener(open func(dir string) (storage.Storage, error)) Option {
	return func(b *Bridge) { b.openStorage = open }
}

// New creates a bridge with the default timeout policy and the sqlite
// storage backend.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		registry:    registry.New[*replica.Replica](),
		lockTimeout: guard.DefaultTimeout,
		syncTimeout: DefaultSyncTimeout,
		openStorage: sqlite.New,
		logger:      slog.Default().With("component", "bridge"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// --------------------------------------------------------------------------
// Lifecycle Entry Points
// --------------------------------------------------------------------------

// Initialize opens (or creates) the task database under dataDir and
// returns a handle to it. 0 on failure.
func (b *Bridge) Initialize(dataDir string) uint64 {
	countOp("initialize")
	store, err := b.openStorage(dataDir)
	if err != nil {
		b.fail("initialize", err)
		return registry.InvalidHandle
	}
	rep := replica.New(store)
	h := b.registry.Create(rep, (*replica.Replica).Check)
	b.logger.Info("replica initialized", "handle", h, "dir", dataDir)
	return h
}

// Destroy closes the replica behind a handle and invalidates the handle.
// The handle fails every later call whether or not Destroy succeeded; on
// a timeout the underlying database is left open for the in-flight
// holder and closed storage is leaked rather than yanked away.
func (b *Bridge) Destroy(h uint64) bool {
	countOp("destroy")
	rep, err := b.registry.Remove(h, b.lockTimeout)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownHandle) {
			invalidHandles.Inc()
		}
		b.fail("destroy", err)
		return false
	}
	if err := rep.Close(); err != nil {
		b.fail("destroy", err)
		return false
	}
	b.logger.Info("replica destroyed", "handle", h)
	return true
}

// --------------------------------------------------------------------------
// Shared Plumbing
// --------------------------------------------------------------------------

// run is the common body of every handle-based entry point: resolve,
// acquire within the bound, delegate, classify the failure.
func (b *Bridge) run(op string, h uint64, timeout time.Duration, fn func(*replica.Replica) error) error {
	countOp(op)
	g, found := b.registry.Lookup(h)
	if !found {
		invalidHandles.Inc()
		b.fail(op, fmt.Errorf("%w: %d", errUnknownHandle, h))
		return errUnknownHandle
	}
	err := g.With(timeout, op, fn)
	if err != nil {
		switch {
		case errors.Is(err, guard.ErrTimeout):
			lockTimeouts.Inc()
		case errors.Is(err, guard.ErrPanicked):
			panicsCaught.Inc()
		}
		b.fail(op, err)
	}
	return err
}

// mutate wraps run for entry points that edit a single task: look the
// task up, collect the operation batch, stamp the modification time and
// commit. The working set is refreshed without renumbering so indexes
// held by the caller stay valid.
func (b *Bridge) mutate(op string, h uint64, id string, touch bool, fn func(*replica.Task, *[]storage.Operation) error) bool {
	taskID, err := uuid.Parse(id)
	if err != nil {
		countOp(op)
		b.fail(op, fmt.Errorf("invalid task uuid %q: %w", id, err))
		return false
	}
	return b.run(op, h, b.lockTimeout, func(r *replica.Replica) error {
		task, err := r.GetTask(taskID)
		if err != nil {
			return err
		}
		var ops []storage.Operation
		if err := fn(task, &ops); err != nil {
			return err
		}
		if len(ops) == 0 {
			return nil
		}
		if touch {
			stampModified(task, &ops)
		}
		if err := r.CommitOperations(ops); err != nil {
			return err
		}
		return r.RebuildWorkingSet(false)
	}) == nil
}

// stampModified records the current time on the task.
func stampModified(task *replica.Task, ops *[]storage.Operation) {
	now := fmt.Sprintf("%d", time.Now().Unix())
	task.SetValue("modified", &now, ops)
}

func countOp(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`taskbridge_ops_total{op=%q}`, op)).Inc()
}

// fail logs and counts a swallowed failure. This is the only trace most
// errors leave, so the operation name always goes with it.
func (b *Bridge) fail(op string, err error) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`taskbridge_op_failures_total{op=%q}`, op)).Inc()
	b.logger.Error("operation failed", "op", op, "error", err)
}
