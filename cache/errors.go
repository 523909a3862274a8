package cache

import (
	"errors"
	"fmt"
)

// ErrCorruptIndex marks metadata that could not be decoded. The store
// recovers from it by starting with an empty index.
var ErrCorruptIndex = errors.New("corrupt cache index")

// StorageError indicates a failed operation on a KV backend.
type StorageError struct {
	Op    string
	Key   string
	Cause error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Cause)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}
