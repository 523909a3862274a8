// Package cache provides the URL-addressed translation cache and the
// key-value backends it persists into.
package cache

// KV is the persistence contract the cache store writes through.
// Implementations must be safe for concurrent use.
type KV interface {
	// Get returns the stored value and true, or nil and false if absent.
	// A non-nil error means the backend could not answer; it is never
	// returned for a missing key.
	Get(key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}
