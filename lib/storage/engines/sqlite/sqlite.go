// Package sqlite provides the durable on-disk implementation of the
// storage.Storage interface using modernc.org/sqlite (no cgo). One
// database file holds the task maps, the working set, the operation log
// and the sync metadata of a single replica.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tasksquire/taskbridge/lib/storage"
)

// DBFileName is the database file created inside the data directory.
const DBFileName = "taskdb.sqlite3"

type sqliteImpl struct {
	db     *sql.DB
	logger *slog.Logger
	closed bool
}

// New opens (or creates) the task database inside dir. Parent directories
// are created if needed and the schema is created on first open.
func New(dir string) (storage.Storage, error) {
	logger := slog.Default().With("component", "storage")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dir, DBFileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single owner, single connection. Avoids SQLITE_BUSY from the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &sqliteImpl{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("task database opened", "path", path)
	return s, nil
}

func (s *sqliteImpl) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			uuid TEXT PRIMARY KEY,
			data TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS operations (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			data TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS working_set (
			idx INTEGER PRIMARY KEY,
			uuid TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sync_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --------------------------------------------------------------------------
// Interface Methods (docu see storage/storage.go)
// --------------------------------------------------------------------------

func (s *sqliteImpl) GetTask(id uuid.UUID) (map[string]string, bool, error) {
	if s.closed {
		return nil, false, storage.ErrClosed
	}
	var data string
	err := s.db.QueryRow("SELECT data FROM tasks WHERE uuid = ?", id.String()).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading task: %w", err)
	}
	var props map[string]string
	if err := json.Unmarshal([]byte(data), &props); err != nil {
		return nil, false, fmt.Errorf("%w: task %s: %v", storage.ErrCorrupt, id, err)
	}
	return props, true, nil
}

func (s *sqliteImpl) SetTask(id uuid.UUID, props map[string]string) error {
	if s.closed {
		return storage.ErrClosed
	}
	data, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("encoding task: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO tasks (uuid, data) VALUES (?, ?) ON CONFLICT(uuid) DO UPDATE SET data = excluded.data",
		id.String(), string(data),
	)
	if err != nil {
		return fmt.Errorf("storing task: %w", err)
	}
	return nil
}

func (s *sqliteImpl) DeleteTask(id uuid.UUID) error {
	if s.closed {
		return storage.ErrClosed
	}
	if _, err := s.db.Exec("DELETE FROM tasks WHERE uuid = ?", id.String()); err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

func (s *sqliteImpl) AllTasks() (map[uuid.UUID]map[string]string, error) {
	if s.closed {
		return nil, storage.ErrClosed
	}
	rows, err := s.db.Query("SELECT uuid, data FROM tasks")
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	all := make(map[uuid.UUID]map[string]string)
	for rows.Next() {
		var idStr, data string
		if err := rows.Scan(&idStr, &data); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("%w: task id %q: %v", storage.ErrCorrupt, idStr, err)
		}
		var props map[string]string
		if err := json.Unmarshal([]byte(data), &props); err != nil {
			return nil, fmt.Errorf("%w: task %s: %v", storage.ErrCorrupt, idStr, err)
		}
		all[id] = props
	}
	return all, rows.Err()
}

func (s *sqliteImpl) AllTaskIDs() ([]uuid.UUID, error) {
	if s.closed {
		return nil, storage.ErrClosed
	}
	rows, err := s.db.Query("SELECT uuid FROM tasks")
	if err != nil {
		return nil, fmt.Errorf("listing task ids: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("scanning task id: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("%w: task id %q: %v", storage.ErrCorrupt, idStr, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *sqliteImpl) WorkingSet() ([]uuid.UUID, error) {
	if s.closed {
		return nil, storage.ErrClosed
	}
	rows, err := s.db.Query("SELECT idx, uuid FROM working_set ORDER BY idx")
	if err != nil {
		return nil, fmt.Errorf("loading working set: %w", err)
	}
	defer rows.Close()

	byIdx := map[int]uuid.UUID{}
	maxIdx := 0
	for rows.Next() {
		var idx int
		var idStr string
		if err := rows.Scan(&idx, &idStr); err != nil {
			return nil, fmt.Errorf("scanning working set: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("%w: working set id %q: %v", storage.ErrCorrupt, idStr, err)
		}
		byIdx[idx] = id
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Slot 0 is reserved, missing slots stay uuid.Nil.
	ws := make([]uuid.UUID, maxIdx+1)
	for idx, id := range byIdx {
		ws[idx] = id
	}
	ws[0] = uuid.Nil
	return ws, nil
}

func (s *sqliteImpl) SetWorkingSet(ids []uuid.UUID) error {
	if s.closed {
		return storage.ErrClosed
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM working_set"); err != nil {
		return fmt.Errorf("clearing working set: %w", err)
	}
	for idx, id := range ids {
		if idx == 0 || id == uuid.Nil {
			continue
		}
		if _, err := tx.Exec("INSERT INTO working_set (idx, uuid) VALUES (?, ?)", idx, id.String()); err != nil {
			return fmt.Errorf("storing working set entry: %w", err)
		}
	}
	return tx.Commit()
}

func (s *sqliteImpl) AppendOperations(ops []storage.Operation) error {
	if s.closed {
		return storage.ErrClosed
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		data, err := json.Marshal(op)
		if err != nil {
			return fmt.Errorf("encoding operation: %w", err)
		}
		if _, err := tx.Exec("INSERT INTO operations (data) VALUES (?)", string(data)); err != nil {
			return fmt.Errorf("storing operation: %w", err)
		}
	}
	return tx.Commit()
}

func (s *sqliteImpl) Operations() ([]storage.Operation, error) {
	if s.closed {
		return nil, storage.ErrClosed
	}
	rows, err := s.db.Query("SELECT data FROM operations ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("loading operations: %w", err)
	}
	defer rows.Close()

	ops := []storage.Operation{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		var op storage.Operation
		if err := json.Unmarshal([]byte(data), &op); err != nil {
			return nil, fmt.Errorf("%w: operation: %v", storage.ErrCorrupt, err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func (s *sqliteImpl) TruncateOperations(n int) error {
	if s.closed {
		return storage.ErrClosed
	}
	if n < 0 {
		n = 0
	}
	_, err := s.db.Exec(
		"DELETE FROM operations WHERE seq NOT IN (SELECT seq FROM operations ORDER BY seq LIMIT ?)", n,
	)
	if err != nil {
		return fmt.Errorf("truncating operations: %w", err)
	}
	return nil
}

func (s *sqliteImpl) BaseVersion() (string, error) {
	if s.closed {
		return "", storage.ErrClosed
	}
	var v string
	err := s.db.QueryRow("SELECT value FROM sync_meta WHERE key = 'base_version'").Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading base version: %w", err)
	}
	return v, nil
}

func (s *sqliteImpl) SetBaseVersion(v string) error {
	if s.closed {
		return storage.ErrClosed
	}
	_, err := s.db.Exec(
		"INSERT INTO sync_meta (key, value) VALUES ('base_version', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value", v,
	)
	if err != nil {
		return fmt.Errorf("storing base version: %w", err)
	}
	return nil
}

func (s *sqliteImpl) Check() error {
	if s.closed {
		return storage.ErrClosed
	}
	var result string
	if err := s.db.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrCorrupt, err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: quick_check: %s", storage.ErrCorrupt, result)
	}
	return nil
}

func (s *sqliteImpl) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
