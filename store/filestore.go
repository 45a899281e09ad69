package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists each record as one pretty-printed JSON file under a data
// directory. Key segments map to sub-directories, which are created on demand.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir. The directory itself is only
// created when the first record is written.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Load reads and unmarshals the record at key into dest.
func (s *FileStore) Load(ctx context.Context, key string, dest any) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, fmt.Errorf("invalid key %q: %w", key, err)
	}

	var data, err = os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read record %q: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode record %q: %w", key, err)
	}

	return true, nil
}

// Save writes the record at key, creating parent directories as needed. The
// write goes through a temporary file and a rename so a crash mid-write never
// leaves a truncated record behind.
func (s *FileStore) Save(ctx context.Context, key string, value any) error {
	if err := ValidateKey(key); err != nil {
		return fmt.Errorf("invalid key %q: %w", key, err)
	}

	var data, err = json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record %q: %w", key, err)
	}

	var path = s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for record %q: %w", key, err)
	}

	var tmp = path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write record %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit record %q: %w", key, err)
	}

	return nil
}

// Delete removes the record at key, if it exists.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return fmt.Errorf("invalid key %q: %w", key, err)
	}

	var err = os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete record %q: %w", key, err)
	}

	return nil
}

// List walks the data directory and returns every key under prefix.
func (s *FileStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys = make([]string, 0)

	var err = filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if errors.Is(err, fs.ErrNotExist) {
			// Nothing written yet; an empty store lists no keys.
			return filepath.SkipAll
		}
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		rel, relErr := filepath.Rel(s.dir, path)
		if relErr != nil {
			return relErr
		}

		var key = strings.TrimSuffix(filepath.ToSlash(rel), ".json")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys under %q: %w", prefix, err)
	}

	return keys, nil
}

// path maps a key to its backing file.
func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key)+".json")
}
