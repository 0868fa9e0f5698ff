package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tasksquire/taskbridge/lib/replica"
	"github.com/tasksquire/taskbridge/lib/storage"
)

// --------------------------------------------------------------------------
// Task Creation and Mutation
// --------------------------------------------------------------------------

// CreateTask creates a pending task under a caller-chosen uuid. The
// caller generates the uuid so it can refer to the task before the call
// returns.
func (b *Bridge) CreateTask(h uint64, id string) bool {
	taskID, err := uuid.Parse(id)
	if err != nil {
		countOp("create_task")
		b.fail("create_task", fmt.Errorf("invalid task uuid %q: %w", id, err))
		return false
	}
	return b.run("create_task", h, b.lockTimeout, func(r *replica.Replica) error {
		var ops []storage.Operation
		task, err := r.CreateTask(taskID, &ops)
		if err != nil {
			return err
		}
		now := fmt.Sprintf("%d", time.Now().Unix())
		task.SetStatus(replica.StatusPending, &ops)
		task.SetValue("entry", &now, &ops)
		task.SetValue("modified", &now, &ops)
		if err := r.CommitOperations(ops); err != nil {
			return err
		}
		return r.RebuildWorkingSet(false)
	}) == nil
}

// TaskSetDescription sets a task's description.
func (b *Bridge) TaskSetDescription(h uint64, id, description string) bool {
	return b.mutate("task_set_description", h, id, true, func(t *replica.Task, ops *[]storage.Operation) error {
		t.SetDescription(description, ops)
		return nil
	})
}

// TaskSetStatus sets a task's status. Unknown status strings fail.
func (b *Bridge) TaskSetStatus(h uint64, id, status string) bool {
	return b.mutate("task_set_status", h, id, true, func(t *replica.Task, ops *[]storage.Operation) error {
		s, err := replica.ParseStatus(status)
		if err != nil {
			return err
		}
		t.SetStatus(s, ops)
		return nil
	})
}

// TaskSetValue sets or, with a nil value, removes a raw task property.
// Writing "modified" directly suppresses the automatic timestamp so
// callers can backdate imported tasks.
func (b *Bridge) TaskSetValue(h uint64, id, key string, value *string) bool {
	return b.mutate("task_set_value", h, id, key != "modified", func(t *replica.Task, ops *[]storage.Operation) error {
		t.SetValue(key, value, ops)
		return nil
	})
}

// TaskAddTag adds a tag to a task. Malformed tags fail.
func (b *Bridge) TaskAddTag(h uint64, id, tag string) bool {
	return b.mutate("task_add_tag", h, id, true, func(t *replica.Task, ops *[]storage.Operation) error {
		tg, err := replica.ParseTag(tag)
		if err != nil {
			return err
		}
		t.AddTag(tg, ops)
		return nil
	})
}

// TaskRemoveTag removes a tag from a task.
func (b *Bridge) TaskRemoveTag(h uint64, id, tag string) bool {
	return b.mutate("task_remove_tag", h, id, true, func(t *replica.Task, ops *[]storage.Operation) error {
		tg, err := replica.ParseTag(tag)
		if err != nil {
			return err
		}
		t.RemoveTag(tg, ops)
		return nil
	})
}

// TaskAddAnnotation attaches a note with the given entry time (unix
// seconds) to a task.
func (b *Bridge) TaskAddAnnotation(h uint64, id string, entry int64, description string) bool {
	return b.mutate("task_add_annotation", h, id, true, func(t *replica.Task, ops *[]storage.Operation) error {
		t.AddAnnotation(replica.Annotation{
			Entry:       time.Unix(entry, 0).UTC(),
			Description: description,
		}, ops)
		return nil
	})
}

// TaskRemoveAnnotation removes the annotation with the given entry time.
func (b *Bridge) TaskRemoveAnnotation(h uint64, id string, entry int64) bool {
	return b.mutate("task_remove_annotation", h, id, true, func(t *replica.Task, ops *[]storage.Operation) error {
		t.RemoveAnnotation(time.Unix(entry, 0).UTC(), ops)
		return nil
	})
}

// --------------------------------------------------------------------------
// Undo
// --------------------------------------------------------------------------

// AddUndoPoint marks the current state as an undo boundary. The next
// Undo rolls back everything committed after it. The message describes
// the upcoming change for the caller's own bookkeeping; it is logged
// but not persisted.
func (b *Bridge) AddUndoPoint(h uint64, message string) bool {
	return b.run("add_undo_point", h, b.lockTimeout, func(r *replica.Replica) error {
		b.logger.Debug("undo point", "handle", h, "message", message)
		return r.CommitOperations([]storage.Operation{storage.NewUndoPoint()})
	}) == nil
}

// Undo rolls back the operations committed after the latest undo point.
// False when there is nothing to undo or the undo conflicts with later
// changes.
func (b *Bridge) Undo(h uint64) bool {
	return b.run("undo", h, b.lockTimeout, func(r *replica.Replica) error {
		ops, rewindTo, err := r.UndoOperations()
		if err != nil {
			return err
		}
		if err := r.CommitReversedOperations(ops, rewindTo); err != nil {
			return err
		}
		return r.RebuildWorkingSet(false)
	}) == nil
}

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

// AllTaskUUIDs returns the uuids of every stored task. The slice is
// empty but never nil, on failure included.
func (b *Bridge) AllTaskUUIDs(h uint64) []string {
	var ids []uuid.UUID
	err := b.run("all_task_uuids", h, b.lockTimeout, func(r *replica.Replica) error {
		var err error
		ids, err = r.AllTaskIDs()
		return err
	})
	if err != nil {
		return []string{}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

// TaskData exports one task as a flat JSON object. "{}" when the task
// does not exist, "" on any other failure. Marshaling happens after the
// lock is released.
func (b *Bridge) TaskData(h uint64, id string) string {
	taskID, err := uuid.Parse(id)
	if err != nil {
		countOp("task_data")
		b.fail("task_data", fmt.Errorf("invalid task uuid %q: %w", id, err))
		return ""
	}
	var record map[string]string
	err = b.run("task_data", h, b.lockTimeout, func(r *replica.Replica) error {
		var err error
		record, err = r.ExportTask(taskID)
		if errors.Is(err, replica.ErrTaskNotFound) {
			record = nil
			return nil
		}
		return err
	})
	if err != nil {
		return ""
	}
	if record == nil {
		return "{}"
	}
	data, err := json.Marshal(record)
	if err != nil {
		b.fail("task_data", err)
		return ""
	}
	return string(data)
}

// UUIDForIndex resolves a 1-based working-set index to a task uuid. ""
// when the index is unassigned, out of range or the call fails.
func (b *Bridge) UUIDForIndex(h uint64, index int) string {
	var id uuid.UUID
	err := b.run("uuid_for_index", h, b.lockTimeout, func(r *replica.Replica) error {
		var err error
		id, err = r.TaskIDForIndex(index)
		return err
	})
	if err != nil || id == uuid.Nil {
		return ""
	}
	return id.String()
}

// --------------------------------------------------------------------------
// Bulk Operations
// --------------------------------------------------------------------------

// ClearAllTasks marks every task deleted behind a single undo point and
// renumbers the (now empty) working set.
func (b *Bridge) ClearAllTasks(h uint64) bool {
	return b.run("clear_all_tasks", h, b.lockTimeout, (*replica.Replica).ClearAllTasks) == nil
}

// Commit renumbers the working set. Callers run it after a batch of
// status changes to compact the index space.
func (b *Bridge) Commit(h uint64) bool {
	return b.run("commit", h, b.lockTimeout, func(r *replica.Replica) error {
		return r.RebuildWorkingSet(true)
	}) == nil
}
