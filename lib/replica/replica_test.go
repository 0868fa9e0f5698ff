package replica

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasksquire/taskbridge/lib/storage"
	"github.com/tasksquire/taskbridge/lib/storage/engines/memory"
)

func newTestReplica(t *testing.T) *Replica {
	t.Helper()
	r := New(memory.New())
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// mustCreate creates and commits a pending task with the given description.
func mustCreate(t *testing.T, r *Replica, desc string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	var ops []storage.Operation
	task, err := r.CreateTask(id, &ops)
	require.NoError(t, err)
	task.SetDescription(desc, &ops)
	task.SetStatus(StatusPending, &ops)
	require.NoError(t, r.CommitOperations(ops))
	return id
}

func TestCreateAndGetTask(t *testing.T) {
	r := newTestReplica(t)
	id := mustCreate(t, r, "buy milk")

	task, err := r.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, id, task.ID())
	assert.Equal(t, "buy milk", task.Description())
	assert.Equal(t, StatusPending, task.Status())
}

func TestCreateDuplicateFails(t *testing.T) {
	r := newTestReplica(t)
	id := mustCreate(t, r, "first")

	var ops []storage.Operation
	_, err := r.CreateTask(id, &ops)
	assert.ErrorIs(t, err, ErrTaskExists)
}

func TestGetMissingTask(t *testing.T) {
	r := newTestReplica(t)
	_, err := r.GetTask(uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestAllTaskIDsEmpty(t *testing.T) {
	r := newTestReplica(t)
	ids, err := r.AllTaskIDs()
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestTagsAndAnnotations(t *testing.T) {
	r := newTestReplica(t)
	id := mustCreate(t, r, "tagged")

	task, err := r.GetTask(id)
	require.NoError(t, err)
	var ops []storage.Operation
	task.AddTag("work", &ops)
	task.AddTag("urgent", &ops)
	task.AddAnnotation(Annotation{Entry: time.Unix(1700000000, 0).UTC(), Description: "first note"}, &ops)
	require.NoError(t, r.CommitOperations(ops))

	task, err = r.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, []Tag{"urgent", "work"}, task.Tags())
	anns := task.Annotations()
	require.Len(t, anns, 1)
	assert.Equal(t, "first note", anns[0].Description)
	assert.Equal(t, int64(1700000000), anns[0].Entry.Unix())

	ops = nil
	task.RemoveTag("urgent", &ops)
	task.RemoveAnnotation(time.Unix(1700000000, 0).UTC(), &ops)
	require.NoError(t, r.CommitOperations(ops))

	task, err = r.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, []Tag{"work"}, task.Tags())
	assert.Empty(t, task.Annotations())
}

func TestNoOpMutationsAreNotRecorded(t *testing.T) {
	r := newTestReplica(t)
	id := mustCreate(t, r, "stable")

	task, err := r.GetTask(id)
	require.NoError(t, err)
	var ops []storage.Operation
	task.SetDescription("stable", &ops)
	task.RemoveTag("absent", &ops)
	assert.Empty(t, ops)
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"pending", "completed", "deleted"} {
		s, err := ParseStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, Status(valid), s)
	}
	_, err := ParseStatus("waiting")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestParseTag(t *testing.T) {
	for _, valid := range []string{"work", "a", "Home_2"} {
		_, err := ParseTag(valid)
		assert.NoError(t, err, valid)
	}
	for _, invalid := range []string{"", "2fast", "_x", "has space", "häuser"} {
		_, err := ParseTag(invalid)
		assert.ErrorIs(t, err, ErrInvalidTag, invalid)
	}
}

func TestExportTask(t *testing.T) {
	r := newTestReplica(t)
	id := mustCreate(t, r, "exported")

	task, err := r.GetTask(id)
	require.NoError(t, err)
	var ops []storage.Operation
	task.AddTag("work", &ops)
	task.AddTag("errand", &ops)
	task.AddAnnotation(Annotation{Entry: time.Unix(1700000000, 0).UTC(), Description: "note"}, &ops)
	require.NoError(t, r.CommitOperations(ops))

	record, err := r.ExportTask(id)
	require.NoError(t, err)
	assert.Equal(t, id.String(), record["uuid"])
	assert.Equal(t, "exported", record["description"])
	assert.Equal(t, "pending", record["status"])
	// Tags and annotations appear indexed, never under their raw keys.
	assert.Equal(t, "errand", record["tag_0"])
	assert.Equal(t, "work", record["tag_1"])
	assert.Equal(t, "1700000000", record["annotation_0_entry"])
	assert.Equal(t, "note", record["annotation_0_description"])
	assert.NotContains(t, record, "tag_work")
	assert.NotContains(t, record, "annotation_1700000000")
}

func TestUndoRestoresPreviousState(t *testing.T) {
	r := newTestReplica(t)
	id := mustCreate(t, r, "original")

	require.NoError(t, r.CommitOperations([]storage.Operation{storage.NewUndoPoint()}))

	task, err := r.GetTask(id)
	require.NoError(t, err)
	var ops []storage.Operation
	task.SetDescription("changed", &ops)
	task.SetStatus(StatusCompleted, &ops)
	require.NoError(t, r.CommitOperations(ops))

	undo, rewindTo, err := r.UndoOperations()
	require.NoError(t, err)
	require.NoError(t, r.CommitReversedOperations(undo, rewindTo))

	task, err = r.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, "original", task.Description())
	assert.Equal(t, StatusPending, task.Status())
}

func TestUndoRemovesCreatedTask(t *testing.T) {
	r := newTestReplica(t)
	require.NoError(t, r.CommitOperations([]storage.Operation{storage.NewUndoPoint()}))
	id := mustCreate(t, r, "ephemeral")

	undo, rewindTo, err := r.UndoOperations()
	require.NoError(t, err)
	require.NoError(t, r.CommitReversedOperations(undo, rewindTo))

	_, err = r.GetTask(id)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestUndoWithEmptyLog(t *testing.T) {
	r := newTestReplica(t)
	_, _, err := r.UndoOperations()
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestUndoConflict(t *testing.T) {
	r := newTestReplica(t)
	id := mustCreate(t, r, "contested")
	require.NoError(t, r.CommitOperations([]storage.Operation{storage.NewUndoPoint()}))

	task, err := r.GetTask(id)
	require.NoError(t, err)
	var ops []storage.Operation
	task.SetDescription("first change", &ops)
	require.NoError(t, r.CommitOperations(ops))

	undo, rewindTo, err := r.UndoOperations()
	require.NoError(t, err)

	// The state drifts between reading the undo batch and applying it.
	task, err = r.GetTask(id)
	require.NoError(t, err)
	ops = nil
	task.SetDescription("second change", &ops)
	require.NoError(t, r.CommitOperations(ops))

	assert.ErrorIs(t, r.CommitReversedOperations(undo, rewindTo), ErrUndoConflict)
}

func TestWorkingSetIndexes(t *testing.T) {
	r := newTestReplica(t)
	a := mustCreate(t, r, "a")
	b := mustCreate(t, r, "b")
	require.NoError(t, r.RebuildWorkingSet(true))

	ws, err := r.WorkingSet()
	require.NoError(t, err)
	require.Len(t, ws, 3)
	assert.Equal(t, uuid.Nil, ws[0])
	assert.ElementsMatch(t, []uuid.UUID{a, b}, ws[1:])

	first, err := r.TaskIDForIndex(1)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first)

	// Out of range and the reserved slot resolve to the nil id.
	for _, index := range []int{0, -1, 3, 100} {
		id, err := r.TaskIDForIndex(index)
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, id)
	}
}

func TestWorkingSetKeepsGapsWithoutRenumber(t *testing.T) {
	r := newTestReplica(t)
	a := mustCreate(t, r, "a")
	b := mustCreate(t, r, "b")
	require.NoError(t, r.RebuildWorkingSet(true))

	ws, err := r.WorkingSet()
	require.NoError(t, err)
	indexOfB := 0
	for i, id := range ws {
		if id == b {
			indexOfB = i
		}
	}
	require.NotZero(t, indexOfB)

	task, err := r.GetTask(a)
	require.NoError(t, err)
	var ops []storage.Operation
	task.SetStatus(StatusCompleted, &ops)
	require.NoError(t, r.CommitOperations(ops))

	// Without renumbering, b keeps its index and a leaves a gap.
	require.NoError(t, r.RebuildWorkingSet(false))
	id, err := r.TaskIDForIndex(indexOfB)
	require.NoError(t, err)
	assert.Equal(t, b, id)

	// Renumbering compacts the set down to the one pending task.
	require.NoError(t, r.RebuildWorkingSet(true))
	ws, err = r.WorkingSet()
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{uuid.Nil, b}, ws)
}

func TestClearAllTasks(t *testing.T) {
	r := newTestReplica(t)
	a := mustCreate(t, r, "a")
	b := mustCreate(t, r, "b")

	require.NoError(t, r.ClearAllTasks())

	// Records stay resolvable, only their status changes.
	ids, err := r.AllTaskIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, ids)
	for _, id := range ids {
		task, err := r.GetTask(id)
		require.NoError(t, err)
		assert.Equal(t, StatusDeleted, task.Status())
	}

	ws, err := r.WorkingSet()
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{uuid.Nil}, ws)
}

func TestClearAllTasksIsUndoable(t *testing.T) {
	r := newTestReplica(t)
	id := mustCreate(t, r, "survivor")
	require.NoError(t, r.ClearAllTasks())

	undo, rewindTo, err := r.UndoOperations()
	require.NoError(t, err)
	require.NoError(t, r.CommitReversedOperations(undo, rewindTo))

	task, err := r.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, task.Status())
}
