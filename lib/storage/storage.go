package storage

import (
	"errors"

	"github.com/google/uuid"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrClosed is returned by every method after Close.
	ErrClosed = errors.New("storage: closed")

	// ErrCorrupt is returned by Check when the backing data fails the
	// integrity probe. A replica whose storage reports ErrCorrupt is
	// treated as unusable by the locking layer.
	ErrCorrupt = errors.New("storage: corrupt")
)

// --------------------------------------------------------------------------
// Storage Interface
// --------------------------------------------------------------------------

// Storage is the persistence backend of one task database. All task state
// is modelled as a property map per task id; interpretation of the
// properties (status, tags, annotations) is the replica's business.
//
// Implementations are not required to be thread-safe, see the package
// documentation.
type Storage interface {

	// --------------------------------------------------------------------------
	// Task Operations
	// --------------------------------------------------------------------------

	// GetTask returns the property map for a task. The boolean return
	// value indicates whether the task exists. The returned map is owned
	// by the caller and may be mutated freely.
	GetTask(id uuid.UUID) (props map[string]string, found bool, err error)

	// SetTask inserts or replaces the property map for a task.
	SetTask(id uuid.UUID, props map[string]string) error

	// DeleteTask removes a task entirely. Deleting an unknown task is not
	// an error.
	DeleteTask(id uuid.UUID) error

	// AllTasks returns every task keyed by id. The returned maps are owned
	// by the caller.
	AllTasks() (map[uuid.UUID]map[string]string, error)

	// AllTaskIDs returns the ids of every stored task in unspecified order.
	// An empty database yields an empty, non-nil slice.
	AllTaskIDs() ([]uuid.UUID, error)

	// --------------------------------------------------------------------------
	// Working Set
	// --------------------------------------------------------------------------

	// WorkingSet returns the current working set. Slot 0 is reserved and
	// always uuid.Nil; user-visible indexes are 1-based.
	WorkingSet() ([]uuid.UUID, error)

	// SetWorkingSet replaces the working set. The caller must include the
	// reserved slot 0.
	SetWorkingSet(ids []uuid.UUID) error

	// --------------------------------------------------------------------------
	// Operation Log
	// --------------------------------------------------------------------------

	// AppendOperations appends committed operations to the log of changes
	// that have not yet been synchronized.
	AppendOperations(ops []Operation) error

	// Operations returns the full unsynchronized operation log in commit
	// order. An empty log yields an empty, non-nil slice.
	Operations() ([]Operation, error)

	// TruncateOperations drops all logged operations except the first n.
	// TruncateOperations(0) clears the log.
	TruncateOperations(n int) error

	// --------------------------------------------------------------------------
	// Synchronization Metadata
	// --------------------------------------------------------------------------

	// BaseVersion returns the id of the last server version this database
	// was synchronized against, or the empty string before the first sync.
	BaseVersion() (string, error)

	// SetBaseVersion records the server version id after a sync step.
	SetBaseVersion(v string) error

	// --------------------------------------------------------------------------
	// Maintenance
	// --------------------------------------------------------------------------

	// Check probes the backing data for structural integrity. It must be
	// cheap: it is run on the lock-poison recovery path while the
	// exclusive-access lock is held.
	Check() error

	// Close releases the backend. Every later call returns ErrClosed.
	Close() error
}
