package storage

import (
	"time"

	"github.com/google/uuid"
)

// OpType enumerates the kinds of recorded changes.
type OpType string

const (
	// OpCreate records the creation of an empty task.
	OpCreate OpType = "create"

	// OpDelete records the removal of a task. OldTask holds the property
	// map at the time of deletion so the change can be reversed.
	OpDelete OpType = "delete"

	// OpUpdate records a single-property change. A nil Value removes the
	// property, a nil OldValue means it did not exist before.
	OpUpdate OpType = "update"

	// OpUndoPoint marks a boundary for the undo machinery. It carries no
	// task data and is never uploaded as a data change.
	OpUndoPoint OpType = "undo_point"
)

// Operation is one recorded change to the task database. Operations are
// JSON-serializable: they are persisted in the operation log and shipped
// to sync servers as version payloads.
type Operation struct {
	Type      OpType            `json:"type"`
	ID        uuid.UUID         `json:"uuid,omitempty"`
	Property  string            `json:"property,omitempty"`
	OldValue  *string           `json:"old_value,omitempty"`
	Value     *string           `json:"value,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	OldTask   map[string]string `json:"old_task,omitempty"`
}

// NewCreate returns an OpCreate for the given task id.
func NewCreate(id uuid.UUID) Operation {
	return Operation{Type: OpCreate, ID: id, Timestamp: time.Now().UTC()}
}

// NewDelete returns an OpDelete preserving the deleted property map.
func NewDelete(id uuid.UUID, oldTask map[string]string) Operation {
	return Operation{Type: OpDelete, ID: id, OldTask: oldTask, Timestamp: time.Now().UTC()}
}

// NewUpdate returns an OpUpdate for a single property transition.
func NewUpdate(id uuid.UUID, property string, oldValue, value *string) Operation {
	return Operation{
		Type:      OpUpdate,
		ID:        id,
		Property:  property,
		OldValue:  oldValue,
		Value:     value,
		Timestamp: time.Now().UTC(),
	}
}

// NewUndoPoint returns an OpUndoPoint marker.
func NewUndoPoint() Operation {
	return Operation{Type: OpUndoPoint, Timestamp: time.Now().UTC()}
}
