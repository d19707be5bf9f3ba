package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"igaudit/pkg/logger"
)

// fileDocument is the on-disk layout of a FileStore
type fileDocument struct {
	Version   int                        `json:"version"`
	UpdatedAt time.Time                  `json:"updatedAt"`
	Values    map[string]json.RawMessage `json:"values"`
}

// FileStore keeps every value in a single JSON document, rewritten
// atomically on each Set so a crash never leaves a torn file.
type FileStore struct {
	path   string
	logger logger.Logger

	mu     sync.RWMutex
	data   map[string]json.RawMessage
	closed bool
	notifier
}

var _ Store = (*FileStore)(nil)

// NewFileStore opens (or creates) the document at path
func NewFileStore(path string, log logger.Logger) (*FileStore, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	fs := &FileStore{
		path:   path,
		logger: log.WithField("component", "store"),
		data:   make(map[string]json.RawMessage),
	}

	if err := fs.load(); err != nil {
		return nil, err
	}

	return fs, nil
}

func (f *FileStore) load() error {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open store file: %w", err)
	}
	defer file.Close()

	var doc fileDocument
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode store file: %w", err)
	}
	if doc.Values != nil {
		f.data = doc.Values
	}

	f.logger.DebugWithFields("Store loaded", map[string]interface{}{
		"path": f.path,
		"keys": len(f.data),
	})
	return nil
}

// Get returns the stored values for keys
func (f *FileStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrClosed
	}
	return pick(f.data, keys), nil
}

// Set writes values to disk and notifies listeners. On a write failure the
// in-memory view is left unchanged.
func (f *FileStore) Set(ctx context.Context, values map[string]any) error {
	encoded, keys, err := encodeValues(values)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}

	next := make(map[string]json.RawMessage, len(f.data)+len(keys))
	for k, v := range f.data {
		next[k] = v
	}
	for _, k := range keys {
		next[k] = encoded[k]
	}

	if err := f.save(next); err != nil {
		f.mu.Unlock()
		return err
	}
	f.data = next
	f.mu.Unlock()

	f.publish(encoded, keys)
	return nil
}

// save writes the document atomically via a temp file and rename
func (f *FileStore) save(values map[string]json.RawMessage) error {
	tempPath := f.path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary store file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(fileDocument{Version: 1, UpdatedAt: time.Now().UTC(), Values: values}); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode store file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync store file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close store file: %w", err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace store file: %w", err)
	}

	return nil
}

// Subscribe registers a change listener
func (f *FileStore) Subscribe(fn Listener) func() {
	return f.subscribe(fn)
}

// Path returns the backing file
func (f *FileStore) Path() string {
	return f.path
}

// Close marks the store closed
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
