package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all keys in one JSON object on disk. Writes go to a temp
// file that is renamed over the original, so readers see either the old or
// the new document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store needs a path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return &FileStore{path: path}, nil
}

func (fs *FileStore) Get(_ context.Context, key string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := fs.load()
	if err != nil {
		return "", err
	}
	value, ok := data[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (fs *FileStore) Set(_ context.Context, key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := fs.load()
	if err != nil {
		// unreadable document: start over rather than refusing writes forever
		data = make(map[string]string)
	}
	data[key] = value
	return fs.save(data)
}

func (fs *FileStore) Remove(_ context.Context, key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := fs.load()
	if err != nil {
		data = make(map[string]string)
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return fs.save(data)
}

func (fs *FileStore) Close() error {
	return nil
}

func (fs *FileStore) load() (map[string]string, error) {
	serialized, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fs.path, err)
	}

	data := make(map[string]string)
	if err := json.Unmarshal(serialized, &data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fs.path, err)
	}
	return data, nil
}

func (fs *FileStore) save(data map[string]string) error {
	serialized, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".weather-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(serialized); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fs.path)
}
