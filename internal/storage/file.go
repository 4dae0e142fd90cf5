package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSaveDir is where the file store keeps saves when none is configured.
const DefaultSaveDir = ".saves"

// FileStore keeps each key in its own YAML file under a directory.
type FileStore struct {
	dir string
}

var _ BlobStore = (*FileStore)(nil)

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = DefaultSaveDir
	}
	return &FileStore{dir: dir}
}

// ErrInvalidKey is returned for keys that would resolve outside the store
// directory.
var ErrInvalidKey = errors.New("invalid save key")

func (f *FileStore) path(key string) (string, error) {
	parts := strings.Split(key, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `\:`) {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return filepath.Join(append([]string{f.dir}, parts...)...) + ".yaml", nil
}

func (f *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	path, err := f.path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// Set writes through a temp file and rename so a crash never leaves half a save.
func (f *FileStore) Set(_ context.Context, key, value string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".save-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (f *FileStore) Remove(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (f *FileStore) Close() error { return nil }

// ListSlots returns the keys with a save under prefix, e.g. every slot of
// the current schema version.
func (f *FileStore) ListSlots(prefix string) ([]string, error) {
	root, err := f.path(prefix)
	if err != nil {
		return nil, err
	}
	root = strings.TrimSuffix(root, ".yaml")
	var keys []string

	if info, err := os.Stat(root + ".yaml"); err == nil && !info.IsDir() {
		keys = append(keys, prefix)
	}

	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return keys, nil
	}
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		keys = append(keys, prefix+"/"+strings.TrimSuffix(name, ".yaml"))
	}
	return keys, nil
}
