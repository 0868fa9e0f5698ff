package replica

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/tasksquire/taskbridge/lib/storage"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrTaskNotFound is returned when the referenced task does not exist.
	ErrTaskNotFound = errors.New("replica: task not found")

	// ErrTaskExists is returned by CreateTask for an id already in use.
	ErrTaskExists = errors.New("replica: task already exists")

	// ErrNothingToUndo is returned by UndoOperations on an empty history.
	ErrNothingToUndo = errors.New("replica: nothing to undo")

	// ErrUndoConflict is returned by CommitReversedOperations when the
	// database state drifted since the operations were recorded.
	ErrUndoConflict = errors.New("replica: undo conflicts with later changes")
)

// --------------------------------------------------------------------------
// Replica
// --------------------------------------------------------------------------

// Replica is one task database over a storage backend. It owns the backend
// exclusively and is not safe for concurrent use (see package docs).
type Replica struct {
	store  storage.Storage
	logger *slog.Logger
}

// New creates a replica over the given storage backend. The replica takes
// ownership of the backend; Close closes it.
func New(store storage.Storage) *Replica {
	return &Replica{
		store:  store,
		logger: slog.Default().With("component", "replica"),
	}
}

// Close releases the storage backend.
func (r *Replica) Close() error {
	return r.store.Close()
}

// Check probes the storage backend for structural integrity. It is the
// revalidation hook run by the locking layer after an abnormal holder
// termination.
func (r *Replica) Check() error {
	return r.store.Check()
}

// --------------------------------------------------------------------------
// Task Access
// --------------------------------------------------------------------------

// CreateTask creates an empty task and returns a view of it together with
// the recorded create operation. The caller extends ops with further
// mutations and commits the batch.
func (r *Replica) CreateTask(id uuid.UUID, ops *[]storage.Operation) (*Task, error) {
	_, found, err := r.store.GetTask(id)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, fmt.Errorf("%w: %s", ErrTaskExists, id)
	}
	*ops = append(*ops, storage.NewCreate(id))
	return &Task{id: id, props: map[string]string{}}, nil
}

// GetTask returns a mutable view of an existing task.
func (r *Replica) GetTask(id uuid.UUID) (*Task, error) {
	props, found, err := r.store.GetTask(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return &Task{id: id, props: props}, nil
}

// AllTaskIDs returns the ids of every stored task. Empty database, empty
// non-nil slice.
func (r *Replica) AllTaskIDs() ([]uuid.UUID, error) {
	return r.store.AllTaskIDs()
}

// --------------------------------------------------------------------------
// Commit and Apply
// --------------------------------------------------------------------------

// CommitOperations applies a batch of operations to storage and appends it
// to the unsynchronized log. An empty batch is a no-op.
func (r *Replica) CommitOperations(ops []storage.Operation) error {
	if len(ops) == 0 {
		return nil
	}
	for _, op := range ops {
		if err := r.apply(op); err != nil {
			return err
		}
	}
	return r.store.AppendOperations(ops)
}

// apply performs one operation against storage.
func (r *Replica) apply(op storage.Operation) error {
	switch op.Type {
	case storage.OpCreate:
		return r.store.SetTask(op.ID, map[string]string{})

	case storage.OpDelete:
		return r.store.DeleteTask(op.ID)

	case storage.OpUpdate:
		props, found, err := r.store.GetTask(op.ID)
		if err != nil {
			return err
		}
		if !found {
			// Update for an unknown task: synthesize it. Remote batches
			// may reference tasks created before the local base version.
			props = map[string]string{}
		}
		if op.Value == nil {
			delete(props, op.Property)
		} else {
			props[op.Property] = *op.Value
		}
		return r.store.SetTask(op.ID, props)

	case storage.OpUndoPoint:
		return nil

	default:
		return fmt.Errorf("replica: unknown operation type %q", op.Type)
	}
}

// --------------------------------------------------------------------------
// Undo
// --------------------------------------------------------------------------

// UndoOperations returns the logged operations after the latest undo
// point, in commit order, together with the log position the undo would
// rewind to. ErrNothingToUndo when there is nothing to roll back.
func (r *Replica) UndoOperations() ([]storage.Operation, int, error) {
	ops, err := r.store.Operations()
	if err != nil {
		return nil, 0, err
	}
	mark := -1
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].Type == storage.OpUndoPoint {
			mark = i
			break
		}
	}
	undo := ops[mark+1:]
	if len(undo) == 0 {
		return nil, 0, ErrNothingToUndo
	}
	rewindTo := mark
	if rewindTo < 0 {
		rewindTo = 0
	}
	return undo, rewindTo, nil
}

// CommitReversedOperations rolls back the given operations (as returned by
// UndoOperations) and truncates the log to rewindTo. Before touching
// anything it verifies that the database still matches the recorded
// after-state of every operation; ErrUndoConflict otherwise.
func (r *Replica) CommitReversedOperations(undo []storage.Operation, rewindTo int) error {
	for _, op := range undo {
		if op.Type != storage.OpUpdate {
			continue
		}
		props, found, err := r.store.GetTask(op.ID)
		if err != nil {
			return err
		}
		current, has := "", false
		if found {
			current, has = props[op.Property]
		}
		switch {
		case op.Value == nil && has:
			return ErrUndoConflict
		case op.Value != nil && (!has || current != *op.Value):
			return ErrUndoConflict
		}
	}

	for i := len(undo) - 1; i >= 0; i-- {
		if err := r.apply(reverse(undo[i])); err != nil {
			return err
		}
	}
	return r.store.TruncateOperations(rewindTo)
}

// reverse returns the inverse of an operation.
func reverse(op storage.Operation) storage.Operation {
	switch op.Type {
	case storage.OpCreate:
		return storage.Operation{Type: storage.OpDelete, ID: op.ID}
	case storage.OpDelete:
		return storage.Operation{Type: storage.OpCreate, ID: op.ID}
	case storage.OpUpdate:
		return storage.Operation{
			Type:     storage.OpUpdate,
			ID:       op.ID,
			Property: op.Property,
			OldValue: op.Value,
			Value:    op.OldValue,
		}
	default:
		return op
	}
}

// --------------------------------------------------------------------------
// Working Set
// --------------------------------------------------------------------------

// WorkingSet returns the current working set; slot 0 is always uuid.Nil.
func (r *Replica) WorkingSet() ([]uuid.UUID, error) {
	return r.store.WorkingSet()
}

// TaskIDForIndex resolves a 1-based working-set index to a task id.
// uuid.Nil when the index is out of range or unassigned.
func (r *Replica) TaskIDForIndex(index int) (uuid.UUID, error) {
	ws, err := r.store.WorkingSet()
	if err != nil {
		return uuid.Nil, err
	}
	if index < 1 || index >= len(ws) {
		return uuid.Nil, nil
	}
	return ws[index], nil
}

// RebuildWorkingSet recomputes the working set from the pending tasks.
// With renumber, indexes are reassigned contiguously from 1; otherwise
// existing indexes are kept, dropped tasks leave gaps and new pending
// tasks are appended.
func (r *Replica) RebuildWorkingSet(renumber bool) error {
	all, err := r.store.AllTasks()
	if err != nil {
		return err
	}
	pending := map[uuid.UUID]bool{}
	for id, props := range all {
		if status, ok := props["status"]; !ok || status == string(StatusPending) {
			pending[id] = true
		}
	}

	old, err := r.store.WorkingSet()
	if err != nil {
		return err
	}

	// Stable order: previously indexed tasks first, then new ones sorted.
	ordered := []uuid.UUID{}
	seen := map[uuid.UUID]bool{}
	for _, id := range old[1:] {
		if id != uuid.Nil && pending[id] && !seen[id] {
			ordered = append(ordered, id)
			seen[id] = true
		}
	}
	fresh := []uuid.UUID{}
	for id := range pending {
		if !seen[id] {
			fresh = append(fresh, id)
		}
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].String() < fresh[j].String() })
	ordered = append(ordered, fresh...)

	var ws []uuid.UUID
	if renumber {
		ws = make([]uuid.UUID, 0, len(ordered)+1)
		ws = append(ws, uuid.Nil)
		ws = append(ws, ordered...)
	} else {
		ws = make([]uuid.UUID, len(old))
		copy(ws, old)
		for i, id := range ws {
			if i == 0 {
				continue
			}
			if id != uuid.Nil && !pending[id] {
				ws[i] = uuid.Nil
			}
		}
		for _, id := range ordered {
			if !contains(old, id) {
				ws = append(ws, id)
			}
		}
	}
	return r.store.SetWorkingSet(ws)
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// --------------------------------------------------------------------------
// Bulk Operations
// --------------------------------------------------------------------------

// ClearAllTasks records an undo point, marks every task deleted and
// rebuilds the working set. Task records are retained so ids keep
// resolving; only their status changes.
func (r *Replica) ClearAllTasks() error {
	all, err := r.store.AllTasks()
	if err != nil {
		return err
	}
	r.logger.Info("clearing all tasks", "count", len(all))

	ops := []storage.Operation{storage.NewUndoPoint()}
	for id := range all {
		task, err := r.GetTask(id)
		if err != nil {
			return err
		}
		task.SetStatus(StatusDeleted, &ops)
	}
	if err := r.CommitOperations(ops); err != nil {
		return err
	}
	return r.RebuildWorkingSet(true)
}

// --------------------------------------------------------------------------
// Export
// --------------------------------------------------------------------------

// ExportTask flattens one task into the boundary record: plain properties,
// the task id under "uuid", indexed "tag_<i>" entries and indexed
// "annotation_<i>_entry"/"annotation_<i>_description" pairs.
func (r *Replica) ExportTask(id uuid.UUID) (map[string]string, error) {
	task, err := r.GetTask(id)
	if err != nil {
		return nil, err
	}

	record := map[string]string{}
	for key, value := range task.props {
		if isTagProperty(key) || isAnnotationProperty(key) {
			continue
		}
		record[key] = value
	}
	record["uuid"] = id.String()

	for i, tag := range task.Tags() {
		record[fmt.Sprintf("tag_%d", i)] = string(tag)
	}
	for i, ann := range task.Annotations() {
		record[fmt.Sprintf("annotation_%d_entry", i)] = fmt.Sprintf("%d", ann.Entry.Unix())
		record[fmt.Sprintf("annotation_%d_description", i)] = ann.Description
	}
	return record, nil
}
