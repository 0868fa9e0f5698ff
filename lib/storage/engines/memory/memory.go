// Package memory provides a volatile in-memory implementation of the
// storage.Storage interface. It is the backend used by tests and by
// throwaway replicas; nothing survives Close.
package memory

import (
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tasksquire/taskbridge/lib/storage"
)

// memoryImpl keeps all task state in process memory. The task map uses a
// concurrent map purely for parity with the other engines' iteration
// semantics; the engine as a whole is still single-owner like every
// storage backend.
type memoryImpl struct {
	tasks       *xsync.MapOf[uuid.UUID, map[string]string]
	workingSet  []uuid.UUID
	ops         []storage.Operation
	baseVersion string
	closed      bool
}

// New creates an empty in-memory task database.
func New() storage.Storage {
	return &memoryImpl{
		tasks:      xsync.NewMapOf[uuid.UUID, map[string]string](),
		workingSet: []uuid.UUID{uuid.Nil},
		ops:        []storage.Operation{},
	}
}

func cloneProps(props map[string]string) map[string]string {
	c := make(map[string]string, len(props))
	for k, v := range props {
		c[k] = v
	}
	return c
}

// --------------------------------------------------------------------------
// Interface Methods (docu see storage/storage.go)
// --------------------------------------------------------------------------

func (m *memoryImpl) GetTask(id uuid.UUID) (map[string]string, bool, error) {
	if m.closed {
		return nil, false, storage.ErrClosed
	}
	props, found := m.tasks.Load(id)
	if !found {
		return nil, false, nil
	}
	return cloneProps(props), true, nil
}

func (m *memoryImpl) SetTask(id uuid.UUID, props map[string]string) error {
	if m.closed {
		return storage.ErrClosed
	}
	m.tasks.Store(id, cloneProps(props))
	return nil
}

func (m *memoryImpl) DeleteTask(id uuid.UUID) error {
	if m.closed {
		return storage.ErrClosed
	}
	m.tasks.Delete(id)
	return nil
}

func (m *memoryImpl) AllTasks() (map[uuid.UUID]map[string]string, error) {
	if m.closed {
		return nil, storage.ErrClosed
	}
	all := make(map[uuid.UUID]map[string]string, m.tasks.Size())
	m.tasks.Range(func(id uuid.UUID, props map[string]string) bool {
		all[id] = cloneProps(props)
		return true
	})
	return all, nil
}

func (m *memoryImpl) AllTaskIDs() ([]uuid.UUID, error) {
	if m.closed {
		return nil, storage.ErrClosed
	}
	ids := make([]uuid.UUID, 0, m.tasks.Size())
	m.tasks.Range(func(id uuid.UUID, _ map[string]string) bool {
		ids = append(ids, id)
		return true
	})
	return ids, nil
}

func (m *memoryImpl) WorkingSet() ([]uuid.UUID, error) {
	if m.closed {
		return nil, storage.ErrClosed
	}
	ws := make([]uuid.UUID, len(m.workingSet))
	copy(ws, m.workingSet)
	return ws, nil
}

func (m *memoryImpl) SetWorkingSet(ids []uuid.UUID) error {
	if m.closed {
		return storage.ErrClosed
	}
	ws := make([]uuid.UUID, len(ids))
	copy(ws, ids)
	m.workingSet = ws
	return nil
}

func (m *memoryImpl) AppendOperations(ops []storage.Operation) error {
	if m.closed {
		return storage.ErrClosed
	}
	m.ops = append(m.ops, ops...)
	return nil
}

func (m *memoryImpl) Operations() ([]storage.Operation, error) {
	if m.closed {
		return nil, storage.ErrClosed
	}
	ops := make([]storage.Operation, len(m.ops))
	copy(ops, m.ops)
	return ops, nil
}

func (m *memoryImpl) TruncateOperations(n int) error {
	if m.closed {
		return storage.ErrClosed
	}
	if n < 0 || n > len(m.ops) {
		n = len(m.ops)
	}
	m.ops = m.ops[:n]
	return nil
}

func (m *memoryImpl) BaseVersion() (string, error) {
	if m.closed {
		return "", storage.ErrClosed
	}
	return m.baseVersion, nil
}

func (m *memoryImpl) SetBaseVersion(v string) error {
	if m.closed {
		return storage.ErrClosed
	}
	m.baseVersion = v
	return nil
}

func (m *memoryImpl) Check() error {
	if m.closed {
		return storage.ErrClosed
	}
	if len(m.workingSet) == 0 || m.workingSet[0] != uuid.Nil {
		return storage.ErrCorrupt
	}
	return nil
}

func (m *memoryImpl) Close() error {
	m.closed = true
	return nil
}
