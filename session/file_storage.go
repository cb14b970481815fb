package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStorage persists the record as a JSON object in a single file.
// Writes go to a temp file in the same directory followed by a rename, so
// readers see either the old record or the new one.
type FileStorage struct {
	path string
	perm os.FileMode
	mu   sync.Mutex
}

var _ Storage = (*FileStorage)(nil)

// NewFileStorage stores the record at path with 0600 permissions.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path, perm: 0o600}
}

// Path returns the file location.
func (s *FileStorage) Path() string {
	return s.path
}

func (s *FileStorage) Load(context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("session: read %s: %w", s.path, err)
	}

	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", s.path, err)
	}
	return values, nil
}

func (s *FileStorage) Save(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("session: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("session: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("session: write: %w", err)
	}
	if err := tmp.Chmod(s.perm); err != nil {
		tmp.Close()
		return fmt.Errorf("session: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: close: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("session: rename: %w", err)
	}
	return nil
}

func (s *FileStorage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: remove %s: %w", s.path, err)
	}
	return nil
}
