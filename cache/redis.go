package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTimeout bounds every Redis round trip.
const DefaultRedisTimeout = 5 * time.Second

// RedisKV is a Redis-backed KV. Expiry is owned by the Store, so keys are
// written without a server-side TTL.
type RedisKV struct {
	client    *redis.Client
	keyPrefix string
	timeout   time.Duration
}

// RedisConfig holds configuration for the Redis backend.
type RedisConfig struct {
	URL       string        // Redis connection URL (e.g., "redis://localhost:6379")
	KeyPrefix string        // Prefix for all keys (default: "pagetl:")
	Timeout   time.Duration // Per-call timeout (default: 5s)
}

// NewRedisKV connects to Redis and verifies the connection.
func NewRedisKV(cfg RedisConfig) (*RedisKV, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, &StorageError{Op: "connect", Cause: err}
	}

	kv := NewRedisKVFromClient(redis.NewClient(opts), cfg.KeyPrefix)
	if cfg.Timeout > 0 {
		kv.timeout = cfg.Timeout
	}

	if err := kv.Ping(); err != nil {
		kv.client.Close()
		return nil, &StorageError{Op: "ping", Cause: err}
	}

	return kv, nil
}

// NewRedisKVFromClient creates a RedisKV from an existing client.
func NewRedisKVFromClient(client *redis.Client, keyPrefix string) *RedisKV {
	if keyPrefix == "" {
		keyPrefix = "pagetl:"
	}

	return &RedisKV{
		client:    client,
		keyPrefix: keyPrefix,
		timeout:   DefaultRedisTimeout,
	}
}

// Get retrieves a value from Redis. redis.Nil is a miss; transport
// errors are returned as StorageError.
func (r *RedisKV) Get(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	val, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, &StorageError{Op: "get", Key: key, Cause: err}
	}
	return val, true, nil
}

// Set stores a value in Redis.
func (r *RedisKV) Set(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, r.keyPrefix+key, value, 0).Err(); err != nil {
		return &StorageError{Op: "set", Key: key, Cause: err}
	}
	return nil
}

// Delete removes a key from Redis.
func (r *RedisKV) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Del(ctx, r.keyPrefix+key).Err(); err != nil {
		return &StorageError{Op: "delete", Key: key, Cause: err}
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisKV) Close() error {
	return r.client.Close()
}

// Ping tests the Redis connection.
func (r *RedisKV) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

// Verify RedisKV implements KV
var _ KV = (*RedisKV)(nil)
