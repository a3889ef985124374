package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the snapshot in a single JSON file
type FileStore struct {
	path string
}

// NewFileStore creates a file store writing to path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes the snapshot to a temporary file and renames it over the previous one,
// so a crash mid-write leaves the old snapshot intact.
func (s *FileStore) Save(_ context.Context, rooms map[string]json.RawMessage) error {
	data, err := json.Marshal(rooms)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot file
func (s *FileStore) Load(_ context.Context) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	rooms := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &rooms); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return rooms, nil
}

// Close is a no-op
func (s *FileStore) Close() error { return nil }
