package pagetl

import (
	"math"
	"time"
)

// Config holds the cache and dispatch settings of a pipeline.
type Config struct {
	CacheEnabled        bool          // Consult and fill the cache
	TTL                 time.Duration // Entry lifetime (0 = never expire)
	MaxTotalBytes       int64         // Budget for all cached payloads
	SimilarityThreshold float64       // Minimum score for a fuzzy hit, in [0, 1]
	DispatchTimeout     time.Duration // Bound on one translation call
}

// DefaultConfig returns the default settings: caching on, a 7 day TTL, a
// 10 MiB budget, 0.9 similarity and a 60s dispatch timeout.
func DefaultConfig() Config {
	return Config{
		CacheEnabled:        true,
		TTL:                 7 * 24 * time.Hour,
		MaxTotalBytes:       10 * 1024 * 1024,
		SimilarityThreshold: 0.9,
		DispatchTimeout:     60 * time.Second,
	}
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	if math.IsNaN(c.SimilarityThreshold) || c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return &ConfigError{Field: "SimilarityThreshold", Message: "must be within [0, 1]"}
	}
	if c.MaxTotalBytes <= 0 {
		return &ConfigError{Field: "MaxTotalBytes", Message: "must be positive"}
	}
	if c.TTL < 0 {
		return &ConfigError{Field: "TTL", Message: "must not be negative"}
	}
	if c.DispatchTimeout <= 0 {
		return &ConfigError{Field: "DispatchTimeout", Message: "must be positive"}
	}
	return nil
}
