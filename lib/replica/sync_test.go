package replica

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasksquire/taskbridge/lib/server"
	"github.com/tasksquire/taskbridge/lib/storage"
)

func newTestServer(t *testing.T) (server.Server, *server.Sealer) {
	t.Helper()
	srv, err := server.NewLocal(t.TempDir())
	require.NoError(t, err)
	sealer, err := server.NewSealer([]byte("test secret"))
	require.NoError(t, err)
	return srv, sealer
}

func TestSyncPropagatesTasks(t *testing.T) {
	srv, sealer := newTestServer(t)
	ctx := context.Background()

	first := newTestReplica(t)
	second := newTestReplica(t)

	id := mustCreate(t, first, "shared task")
	require.NoError(t, first.Sync(ctx, srv, sealer))

	require.NoError(t, second.Sync(ctx, srv, sealer))
	task, err := second.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, "shared task", task.Description())

	// The uploaded operations are off the local log now.
	ops, err := first.store.Operations()
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestSyncMergesConcurrentChanges(t *testing.T) {
	srv, sealer := newTestServer(t)
	ctx := context.Background()

	first := newTestReplica(t)
	second := newTestReplica(t)

	a := mustCreate(t, first, "from first")
	b := mustCreate(t, second, "from second")

	// Both upload; the second starts behind the tip and must merge.
	require.NoError(t, first.Sync(ctx, srv, sealer))
	require.NoError(t, second.Sync(ctx, srv, sealer))
	require.NoError(t, first.Sync(ctx, srv, sealer))

	for _, r := range []*Replica{first, second} {
		ids, err := r.AllTaskIDs()
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{a, b}, ids)
	}
}

func TestSyncKeepsUndoPointsLocal(t *testing.T) {
	srv, sealer := newTestServer(t)
	ctx := context.Background()

	first := newTestReplica(t)
	require.NoError(t, first.CommitOperations([]storage.Operation{storage.NewUndoPoint()}))
	mustCreate(t, first, "logged")
	require.NoError(t, first.Sync(ctx, srv, sealer))

	// A fresh replica downloads the version; it must contain no undo points.
	second := newTestReplica(t)
	require.NoError(t, second.Sync(ctx, srv, sealer))
	_, _, err := second.UndoOperations()
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestSyncNothingToUpload(t *testing.T) {
	srv, sealer := newTestServer(t)
	r := newTestReplica(t)
	require.NoError(t, r.Sync(context.Background(), srv, sealer))

	base, err := r.store.BaseVersion()
	require.NoError(t, err)
	assert.Empty(t, base)
}

func TestSyncRebuildsWorkingSet(t *testing.T) {
	srv, sealer := newTestServer(t)
	r := newTestReplica(t)
	id := mustCreate(t, r, "indexed")

	require.NoError(t, r.Sync(context.Background(), srv, sealer))

	got, err := r.TaskIDForIndex(1)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
