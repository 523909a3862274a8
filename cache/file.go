package cache

import (
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileKV stores one file per key under a root directory. Writes go through
// a temp file and rename so a reader never sees a partial value.
type FileKV struct {
	root      string
	writeLock sync.Mutex
}

// NewFileKV creates a filesystem backend rooted at root.
func NewFileKV(root string) (*FileKV, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, &StorageError{Op: "mkdir", Key: root, Cause: err}
	}
	return &FileKV{root: root}, nil
}

// Path returns the file that holds key. Keys are hex-encoded so any string
// maps to a safe file name.
func (f *FileKV) Path(key string) string {
	return filepath.Join(f.root, hex.EncodeToString([]byte(key))+".bin")
}

// Get reads the value for key. A missing file is absent; any other read
// failure is a StorageError.
func (f *FileKV) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, &StorageError{Op: "get", Key: key, Cause: err}
	}
	return data, true, nil
}

// Set persists value atomically.
func (f *FileKV) Set(key string, value []byte) error {
	path := f.Path(key)

	f.writeLock.Lock()
	defer f.writeLock.Unlock()

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, value, 0644); err != nil {
		return &StorageError{Op: "set", Key: key, Cause: err}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &StorageError{Op: "set", Key: key, Cause: err}
	}
	return nil
}

// Delete removes the file for key.
func (f *FileKV) Delete(key string) error {
	f.writeLock.Lock()
	defer f.writeLock.Unlock()

	err := os.Remove(f.Path(key))
	if err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "delete", Key: key, Cause: err}
	}
	return nil
}

// Verify FileKV implements KV
var _ KV = (*FileKV)(nil)
