package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMetaKey is the KV key holding the serialized index.
	DefaultMetaKey = "pagetl_cache_meta"

	// DefaultMatchThreshold is the similarity used by DeleteByURL unless
	// overridden with WithMatchThreshold.
	DefaultMatchThreshold = 0.9

	indexVersion = 1
)

// Entry is the metadata of one cached translation. Entries are never
// mutated in place: a refresh replaces the metadata stored at the key.
type Entry struct {
	Key           string `json:"key"`
	SourceURL     string `json:"url"`
	NormalizedURL string `json:"normalized_url"`
	Timestamp     int64  `json:"timestamp"` // epoch milliseconds
	SizeBytes     int64  `json:"size"`
}

// Match is a resolved lookup: the entry, its payload and the similarity
// score that selected it (1.0 for an exact key hit).
type Match struct {
	Entry
	Payload []byte
	Score   float64
}

// Stats is derived from the index on every call.
type Stats struct {
	TotalBytes int64
	Count      int
}

// indexFile is the persisted form of the index. Entries keep insertion
// order, which fixes iteration order for tie-breaks.
type indexFile struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

// Store is a URL-addressed cache of translated batches. It keeps an
// ordered metadata index and one payload per entry in a KV, resolves
// lookups exactly or by URL similarity, expires entries lazily and keeps the
// total payload size under a budget by evicting the oldest entries.
//
// All methods are serialized by a mutex. The index is re-read from the KV
// on every call so several stores may share one backend.
type Store struct {
	kv                KV
	metaKey           string
	now               func() time.Time
	log               *slog.Logger
	parallelThreshold int
	matchThreshold    float64

	mu sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for eviction and recovery messages.
func WithLogger(log *slog.Logger) StoreOption {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetaKey sets the KV key holding the index.
func WithMetaKey(key string) StoreOption {
	return func(s *Store) {
		if key != "" {
			s.metaKey = key
		}
	}
}

// WithParallelThreshold sets the index size from which fuzzy scoring runs
// in parallel. Zero or less disables parallel scoring.
func WithParallelThreshold(n int) StoreOption {
	return func(s *Store) {
		s.parallelThreshold = n
	}
}

// WithMatchThreshold sets the similarity DeleteByURL resolves with.
func WithMatchThreshold(threshold float64) StoreOption {
	return func(s *Store) {
		s.matchThreshold = threshold
	}
}

// NewStore creates a Store persisting into kv.
func NewStore(kv KV, opts ...StoreOption) *Store {
	s := &Store{
		kv:                kv,
		metaKey:           DefaultMetaKey,
		now:               time.Now,
		log:               slog.Default(),
		parallelThreshold: DefaultParallelThreshold,
		matchThreshold:    DefaultMatchThreshold,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Lookup resolves rawURL to a cached entry. The exact key is tried first;
// otherwise the entry whose normalized URL is most similar, with a score of
// at least threshold, is returned. A ttl of zero or less never expires.
// Expired entries and entries whose payload is gone are deleted on the way.
// A backend failure is logged and reads as a miss; the index is left as is.
func (s *Store) Lookup(rawURL string, ttl time.Duration, threshold float64) (*Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		s.log.Warn("Cache lookup failed", "url", rawURL, "err", err)
		return nil, false
	}

	match, entries, dirty, err := s.resolve(entries, NormalizeURL(rawURL, ""), ttl, threshold, true)
	if dirty {
		s.saveLogged(entries)
	}
	if err != nil {
		s.log.Warn("Cache lookup failed", "url", rawURL, "err", err)
		return nil, false
	}

	return match, match != nil
}

// Peek resolves rawURL like Lookup without modifying the cache: expired
// entries and entries without payload are skipped, not deleted.
func (s *Store) Peek(rawURL string, ttl time.Duration, threshold float64) (*Match, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, false, err
	}

	match, _, _, err := s.resolve(entries, NormalizeURL(rawURL, ""), ttl, threshold, false)
	if err != nil {
		return nil, false, err
	}
	return match, match != nil, nil
}

// Put stores payload for rawURL, evicting the oldest entries first while
// the budget would be exceeded. The entry being written is never evicted,
// so a payload larger than maxTotalBytes is still stored, alone.
func (s *Store) Put(rawURL string, payload []byte, maxTotalBytes int64) error {
	normalized := NormalizeURL(rawURL, "")

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(Entry{
		Key:           DeriveKey(normalized),
		SourceURL:     rawURL,
		NormalizedURL: normalized,
		Timestamp:     s.now().UnixMilli(),
		SizeBytes:     int64(len(payload)),
	}, payload, maxTotalBytes)
}

// Restore writes payload with the metadata of e, keeping its timestamp.
// Key, normalized URL and size are re-derived so the index stays
// consistent with the payload actually stored.
func (s *Store) Restore(e Entry, payload []byte, maxTotalBytes int64) error {
	if e.SourceURL == "" && e.NormalizedURL == "" {
		return fmt.Errorf("restore: entry %q has no URL", e.Key)
	}

	if e.SourceURL == "" {
		e.SourceURL = e.NormalizedURL
	}
	e.NormalizedURL = NormalizeURL(e.SourceURL, "")
	e.Key = DeriveKey(e.NormalizedURL)
	e.SizeBytes = int64(len(payload))

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Timestamp <= 0 {
		e.Timestamp = s.now().UnixMilli()
	}
	return s.write(e, payload, maxTotalBytes)
}

// Delete removes the metadata and payload stored under key. Only entry
// keys are accepted; the index key and foreign keys are rejected.
func (s *Store) Delete(key string) error {
	if key == s.metaKey || !strings.HasPrefix(key, KeyPrefix) {
		return fmt.Errorf("delete: %q is not a cache entry key", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}

	i := indexOf(entries, key)
	if i < 0 {
		return s.kv.Delete(key)
	}

	return s.save(s.drop(entries, i))
}

// DeleteByURL resolves rawURL like Lookup, ignoring TTL, and deletes the
// entry it resolves to. It reports whether an entry was deleted.
func (s *Store) DeleteByURL(rawURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return false, err
	}

	match, entries, dirty, err := s.resolve(entries, NormalizeURL(rawURL, ""), 0, s.matchThreshold, true)
	if err != nil {
		if dirty {
			s.saveLogged(entries)
		}
		return false, err
	}
	if match == nil {
		if dirty {
			return false, s.save(entries)
		}
		return false, nil
	}

	entries = s.drop(entries, indexOf(entries, match.Key))
	return true, s.save(entries)
}

// Clear removes every entry and the index itself.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}

	var errs []error
	for _, e := range entries {
		if err := s.kv.Delete(e.Key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.kv.Delete(s.metaKey); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Stats returns the entry count and total payload size. A backend failure
// is logged and reads as an empty cache.
func (s *Store) Stats() Stats {
	entries := s.List()
	return Stats{
		TotalBytes: totalSize(entries),
		Count:      len(entries),
	}
}

// List returns the index in iteration order. A backend failure is logged
// and reads as an empty index; Entries reports it instead.
func (s *Store) List() []Entry {
	entries, err := s.Entries()
	if err != nil {
		s.log.Warn("Failed to read cache index", "err", err)
	}
	return entries
}

// Entries returns the index in iteration order.
func (s *Store) Entries() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

// Payload returns the raw payload stored under key.
func (s *Store) Payload(key string) ([]byte, bool, error) {
	return s.kv.Get(key)
}

// resolve implements the exact-then-fuzzy lookup over entries. It returns
// the match (or nil), the possibly pruned index, and whether the index
// changed. Without prune, unusable entries are skipped in a private copy
// and nothing is deleted from the KV.
func (s *Store) resolve(entries []Entry, normalized string, ttl time.Duration,
	threshold float64, prune bool) (*Match, []Entry, bool, error) {

	now := s.now().UnixMilli()
	dirty := false

	remove := func(i int) {
		if prune {
			entries = s.drop(entries, i)
			dirty = true
			return
		}
		entries = append(entries[:i:i], entries[i+1:]...)
	}

	key := DeriveKey(normalized)
	if i := indexOf(entries, key); i >= 0 {
		e := entries[i]
		if !expired(e, now, ttl) {
			payload, ok, err := s.kv.Get(key)
			if err != nil {
				return nil, entries, dirty, err
			}
			if ok {
				return &Match{Entry: e, Payload: payload, Score: 1.0}, entries, dirty, nil
			}
			s.log.Debug("Dropping cache entry without payload", "key", key)
		}
		remove(i)
	}

	live := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if expired(e, now, ttl) {
			if prune {
				s.deletePayload(e.Key)
				dirty = true
			}
			continue
		}
		live = append(live, e)
	}
	entries = live

	for {
		i, score := bestMatch(entries, normalized, threshold, s.parallelThreshold)
		if i < 0 {
			return nil, entries, dirty, nil
		}

		e := entries[i]
		payload, ok, err := s.kv.Get(e.Key)
		if err != nil {
			return nil, entries, dirty, err
		}
		if ok {
			return &Match{Entry: e, Payload: payload, Score: score}, entries, dirty, nil
		}

		s.log.Debug("Dropping cache entry without payload", "key", e.Key)
		remove(i)
	}
}

// write stores payload and metadata for e after making room for it. An
// entry already at e.Key stays indexed until its replacement is written.
func (s *Store) write(e Entry, payload []byte, maxTotalBytes int64) error {
	entries, err := s.load()
	if err != nil {
		return err
	}

	evicted := false
	for otherSize(entries, e.Key)+e.SizeBytes > maxTotalBytes {
		oldest := -1
		for i := range entries {
			if entries[i].Key == e.Key {
				continue
			}
			if oldest < 0 || entries[i].Timestamp < entries[oldest].Timestamp {
				oldest = i
			}
		}
		if oldest < 0 {
			break
		}

		s.log.Debug("Evicting cache entry",
			"key", entries[oldest].Key,
			"url", entries[oldest].SourceURL,
			"size", entries[oldest].SizeBytes)
		entries = s.drop(entries, oldest)
		evicted = true
	}

	if err := s.kv.Set(e.Key, payload); err != nil {
		if evicted {
			s.saveLogged(entries)
		}
		return err
	}

	if i := indexOf(entries, e.Key); i >= 0 {
		entries = append(entries[:i:i], entries[i+1:]...)
	}
	return s.save(append(entries, e))
}

// drop removes entries[i] from the index and deletes its payload. The
// returned slice never aliases entries.
func (s *Store) drop(entries []Entry, i int) []Entry {
	s.deletePayload(entries[i].Key)
	return append(entries[:i:i], entries[i+1:]...)
}

func (s *Store) deletePayload(key string) {
	if err := s.kv.Delete(key); err != nil {
		s.log.Warn("Failed to delete cache payload", "key", key, "err", err)
	}
}

// load reads the index. Missing metadata is an empty index; unreadable
// metadata is logged and also treated as empty. A failed read is returned
// so callers never save over an index they could not see.
func (s *Store) load() ([]Entry, error) {
	data, ok, err := s.kv.Get(s.metaKey)
	if err != nil {
		var storageErr *StorageError
		if !errors.As(err, &storageErr) {
			err = &StorageError{Op: "get", Key: s.metaKey, Cause: err}
		}
		return nil, err
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}

	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		s.log.Warn("Discarding unreadable cache index",
			"err", fmt.Errorf("%w: %v", ErrCorruptIndex, err))
		return nil, nil
	}

	// Keys are unique; a later duplicate replaces an earlier one.
	entries := make([]Entry, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		if e.Key == "" {
			continue
		}
		if i := indexOf(entries, e.Key); i >= 0 {
			entries = append(entries[:i:i], entries[i+1:]...)
		}
		entries = append(entries, e)
	}

	return entries, nil
}

func (s *Store) save(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.Marshal(indexFile{Version: indexVersion, Entries: entries})
	if err != nil {
		return fmt.Errorf("encoding cache index: %w", err)
	}

	return s.kv.Set(s.metaKey, data)
}

// saveLogged persists the index on paths that cannot report an error.
func (s *Store) saveLogged(entries []Entry) {
	if err := s.save(entries); err != nil {
		s.log.Warn("Failed to persist cache index", "err", err)
	}
}

func expired(e Entry, now int64, ttl time.Duration) bool {
	return ttl > 0 && now-e.Timestamp > ttl.Milliseconds()
}

func indexOf(entries []Entry, key string) int {
	for i := range entries {
		if entries[i].Key == key {
			return i
		}
	}
	return -1
}

func totalSize(entries []Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.SizeBytes
	}
	return total
}

// otherSize is the total size of every entry except the one at key.
func otherSize(entries []Entry, key string) int64 {
	total := totalSize(entries)
	if i := indexOf(entries, key); i >= 0 {
		total -= entries[i].SizeBytes
	}
	return total
}
