package bridge

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localSyncConfig(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf(`{"type": "local", "path": %q, "encryption_secret": "test secret"}`, t.TempDir())
}

func TestSyncSuccess(t *testing.T) {
	b := newTestBridge(t)
	config := localSyncConfig(t)

	first := mustInitialize(t, b)
	second := mustInitialize(t, b)

	id := uuid.New().String()
	require.True(t, b.CreateTask(first, id))
	require.True(t, b.TaskSetDescription(first, id, "synced task"))

	assert.Equal(t, "SUCCESS", b.Sync(first, config))
	assert.Equal(t, "SUCCESS", b.Sync(second, config))

	// The task arrived on the other replica.
	record := decodeTaskData(t, b.TaskData(second, id))
	assert.Equal(t, "synced task", record["description"])
}

func TestSyncInvalidConfig(t *testing.T) {
	b := newTestBridge(t)
	h := mustInitialize(t, b)

	result := b.Sync(h, `{"path": "/sync"}`)
	assert.Contains(t, result, "ERROR: Invalid sync config:")
	assert.Contains(t, result, "missing 'type' field")

	result = b.Sync(h, `not json`)
	assert.Contains(t, result, "ERROR: Invalid sync config:")
}

func TestSyncGCPIsRejected(t *testing.T) {
	b := newTestBridge(t)
	h := mustInitialize(t, b)

	result := b.Sync(h, `{"type": "gcp", "bucket": "b", "encryption_secret": "s"}`)
	assert.Contains(t, result, "ERROR:")
	assert.Contains(t, result, "GCP")
}

func TestSyncUnknownHandle(t *testing.T) {
	b := newTestBridge(t)
	result := b.Sync(12345, localSyncConfig(t))
	assert.Contains(t, result, "ERROR:")
}

func TestSyncWhileLocked(t *testing.T) {
	b := newTestBridge(t, WithSyncTimeout(100*time.Millisecond))
	h := mustInitialize(t, b)

	release := holdLock(t, b, h)
	defer release()

	result := b.Sync(h, localSyncConfig(t))
	assert.Contains(t, result, "ERROR:")
}
