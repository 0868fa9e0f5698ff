// Package storagetest provides a conformance suite for implementations of
// the storage.Storage interface. Every engine runs the same suite from its
// own package tests.
package storagetest

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/tasksquire/taskbridge/lib/storage"
)

// Factory creates a fresh, empty Storage for one test.
type Factory func(t *testing.T) storage.Storage

// RunStorageTests runs the conformance suite against a backend.
func RunStorageTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("SetGetDelete", func(t *testing.T) {
			testSetGetDelete(t, factory(t))
		})
		t.Run("AllTasks", func(t *testing.T) {
			testAllTasks(t, factory(t))
		})
		t.Run("WorkingSet", func(t *testing.T) {
			testWorkingSet(t, factory(t))
		})
		t.Run("OperationLog", func(t *testing.T) {
			testOperationLog(t, factory(t))
		})
		t.Run("BaseVersion", func(t *testing.T) {
			testBaseVersion(t, factory(t))
		})
		t.Run("Check", func(t *testing.T) {
			testCheck(t, factory(t))
		})
		t.Run("Closed", func(t *testing.T) {
			testClosed(t, factory(t))
		})
	})
}

func testSetGetDelete(t *testing.T, s storage.Storage) {
	defer s.Close()

	id := uuid.New()
	if _, found, err := s.GetTask(id); err != nil || found {
		t.Fatalf("expected miss on empty storage, found=%v err=%v", found, err)
	}

	props := map[string]string{"description": "buy milk", "status": "pending"}
	if err := s.SetTask(id, props); err != nil {
		t.Fatalf("SetTask failed: %v", err)
	}

	// Mutating the caller's map after SetTask must not leak into storage.
	props["description"] = "mutated"

	got, found, err := s.GetTask(id)
	if err != nil || !found {
		t.Fatalf("expected hit, found=%v err=%v", found, err)
	}
	if got["description"] != "buy milk" {
		t.Errorf("expected description %q, got %q", "buy milk", got["description"])
	}

	if err := s.DeleteTask(id); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, found, _ := s.GetTask(id); found {
		t.Error("expected miss after delete")
	}
	// Deleting again is not an error.
	if err := s.DeleteTask(id); err != nil {
		t.Errorf("second DeleteTask failed: %v", err)
	}
}

func testAllTasks(t *testing.T, s storage.Storage) {
	defer s.Close()

	ids, err := s.AllTaskIDs()
	if err != nil {
		t.Fatalf("AllTaskIDs failed: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Fatalf("expected empty non-nil id slice, got %v", ids)
	}

	want := map[uuid.UUID]string{}
	for i := 0; i < 5; i++ {
		id := uuid.New()
		want[id] = id.String()
		if err := s.SetTask(id, map[string]string{"description": id.String()}); err != nil {
			t.Fatalf("SetTask failed: %v", err)
		}
	}

	all, err := s.AllTasks()
	if err != nil {
		t.Fatalf("AllTasks failed: %v", err)
	}
	if len(all) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(all))
	}
	for id, desc := range want {
		if all[id]["description"] != desc {
			t.Errorf("task %s: expected description %q, got %q", id, desc, all[id]["description"])
		}
	}
}

func testWorkingSet(t *testing.T, s storage.Storage) {
	defer s.Close()

	ws, err := s.WorkingSet()
	if err != nil {
		t.Fatalf("WorkingSet failed: %v", err)
	}
	if len(ws) < 1 || ws[0] != uuid.Nil {
		t.Fatalf("expected reserved slot 0, got %v", ws)
	}

	a, b := uuid.New(), uuid.New()
	if err := s.SetWorkingSet([]uuid.UUID{uuid.Nil, a, b}); err != nil {
		t.Fatalf("SetWorkingSet failed: %v", err)
	}

	ws, err = s.WorkingSet()
	if err != nil {
		t.Fatalf("WorkingSet failed: %v", err)
	}
	if len(ws) != 3 || ws[1] != a || ws[2] != b {
		t.Fatalf("expected [nil %s %s], got %v", a, b, ws)
	}
}

func testOperationLog(t *testing.T, s storage.Storage) {
	defer s.Close()

	ops, err := s.Operations()
	if err != nil {
		t.Fatalf("Operations failed: %v", err)
	}
	if ops == nil || len(ops) != 0 {
		t.Fatalf("expected empty non-nil operation log, got %v", ops)
	}

	id := uuid.New()
	v := "buy milk"
	batch := []storage.Operation{
		storage.NewUndoPoint(),
		storage.NewCreate(id),
		storage.NewUpdate(id, "description", nil, &v),
	}
	if err := s.AppendOperations(batch); err != nil {
		t.Fatalf("AppendOperations failed: %v", err)
	}

	ops, err = s.Operations()
	if err != nil {
		t.Fatalf("Operations failed: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(ops))
	}
	if ops[0].Type != storage.OpUndoPoint || ops[1].Type != storage.OpCreate || ops[2].Type != storage.OpUpdate {
		t.Errorf("operation order not preserved: %v %v %v", ops[0].Type, ops[1].Type, ops[2].Type)
	}
	if ops[2].ID != id || ops[2].Property != "description" || ops[2].Value == nil || *ops[2].Value != v {
		t.Errorf("update operation not round-tripped: %+v", ops[2])
	}

	if err := s.TruncateOperations(1); err != nil {
		t.Fatalf("TruncateOperations failed: %v", err)
	}
	ops, _ = s.Operations()
	if len(ops) != 1 || ops[0].Type != storage.OpUndoPoint {
		t.Fatalf("expected only the undo point to survive, got %v", ops)
	}

	if err := s.TruncateOperations(0); err != nil {
		t.Fatalf("TruncateOperations(0) failed: %v", err)
	}
	ops, _ = s.Operations()
	if len(ops) != 0 {
		t.Fatalf("expected empty log, got %v", ops)
	}
}

func testBaseVersion(t *testing.T, s storage.Storage) {
	defer s.Close()

	v, err := s.BaseVersion()
	if err != nil {
		t.Fatalf("BaseVersion failed: %v", err)
	}
	if v != "" {
		t.Fatalf("expected empty base version, got %q", v)
	}

	if err := s.SetBaseVersion("v-123"); err != nil {
		t.Fatalf("SetBaseVersion failed: %v", err)
	}
	if v, _ = s.BaseVersion(); v != "v-123" {
		t.Fatalf("expected base version v-123, got %q", v)
	}

	if err := s.SetBaseVersion("v-456"); err != nil {
		t.Fatalf("SetBaseVersion overwrite failed: %v", err)
	}
	if v, _ = s.BaseVersion(); v != "v-456" {
		t.Fatalf("expected base version v-456, got %q", v)
	}
}

func testCheck(t *testing.T, s storage.Storage) {
	defer s.Close()

	if err := s.Check(); err != nil {
		t.Fatalf("Check on healthy storage failed: %v", err)
	}
}

func testClosed(t *testing.T, s storage.Storage) {
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, _, err := s.GetTask(uuid.New()); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("GetTask after Close: expected ErrClosed, got %v", err)
	}
	if err := s.SetTask(uuid.New(), nil); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("SetTask after Close: expected ErrClosed, got %v", err)
	}
	if _, err := s.Operations(); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Operations after Close: expected ErrClosed, got %v", err)
	}
	if err := s.Check(); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Check after Close: expected ErrClosed, got %v", err)
	}
}
