package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// localServer stores the version chain in a directory: one JSON file per
// version plus an index file mapping parent ids to child ids and holding
// the chain tip.
type localServer struct {
	dir string
}

type localIndex struct {
	Latest   string            `json:"latest"`
	Children map[string]string `json:"children"`
}

// NewLocal opens (or creates) a directory-backed sync server.
func NewLocal(dir string) (Server, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating server directory: %w", err)
	}
	return &localServer{dir: dir}, nil
}

func (l *localServer) indexPath() string { return filepath.Join(l.dir, "index.json") }

func (l *localServer) versionPath(id string) string {
	return filepath.Join(l.dir, id+".version")
}

func (l *localServer) loadIndex() (localIndex, error) {
	idx := localIndex{Children: map[string]string{}}
	data, err := os.ReadFile(l.indexPath())
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return idx, fmt.Errorf("reading server index: %w", err)
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("decoding server index: %w", err)
	}
	if idx.Children == nil {
		idx.Children = map[string]string{}
	}
	return idx, nil
}

func (l *localServer) saveIndex(idx localIndex) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return os.WriteFile(l.indexPath(), data, 0o644)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see server.go)
// --------------------------------------------------------------------------

func (l *localServer) AddVersion(_ context.Context, parent string, payload []byte) (string, error) {
	idx, err := l.loadIndex()
	if err != nil {
		return "", err
	}
	if parent != idx.Latest {
		return "", fmt.Errorf("%w: parent %q is not the latest version %q", ErrVersionConflict, parent, idx.Latest)
	}

	v := Version{ID: uuid.New().String(), Parent: parent, Payload: payload}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding version: %w", err)
	}
	if err := os.WriteFile(l.versionPath(v.ID), data, 0o644); err != nil {
		return "", fmt.Errorf("writing version: %w", err)
	}

	idx.Children[parent] = v.ID
	idx.Latest = v.ID
	if err := l.saveIndex(idx); err != nil {
		return "", fmt.Errorf("writing server index: %w", err)
	}
	return v.ID, nil
}

func (l *localServer) GetChildVersion(_ context.Context, parent string) (Version, bool, error) {
	idx, err := l.loadIndex()
	if err != nil {
		return Version{}, false, err
	}
	childID, ok := idx.Children[parent]
	if !ok {
		return Version{}, false, nil
	}

	data, err := os.ReadFile(l.versionPath(childID))
	if err != nil {
		return Version{}, false, fmt.Errorf("reading version %s: %w", childID, err)
	}
	var v Version
	if err := json.Unmarshal(data, &v); err != nil {
		return Version{}, false, fmt.Errorf("decoding version %s: %w", childID, err)
	}
	return v, true, nil
}
