package memory

import (
	"testing"

	"github.com/tasksquire/taskbridge/lib/storage"
	"github.com/tasksquire/taskbridge/lib/storage/storagetest"
)

func TestMemoryStorage(t *testing.T) {
	storagetest.RunStorageTests(t, "memory", func(t *testing.T) storage.Storage {
		return New()
	})
}
