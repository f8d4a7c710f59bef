// Package state provides persistent key-value storage with file and Redis backends.
package state

import (
	"context"
	"fmt"
	"strconv"
)

// KV is the interface for key-value storage backends.
type KV interface {
	// Get retrieves a value. Numbers read back as float64 from JSON backends.
	Get(ctx context.Context, key string) (any, bool, error)

	// Set stores a value.
	Set(ctx context.Context, key string, value any) error

	// Delete removes a value.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Incr atomically adds delta to an integer value and returns the result.
	Incr(ctx context.Context, key string, delta int64) (int64, error)

	// Close flushes and releases the store.
	Close() error
}

// BackendType represents the storage backend type.
type BackendType string

const (
	BackendFile  BackendType = "file"
	BackendRedis BackendType = "redis"
)

// Config configures the state store.
type Config struct {
	Backend BackendType

	// File backend
	FilePath      string
	AutoSave      bool
	SaveIntervalS int

	// Redis backend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// toInt64 converts a stored value to an integer.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("value of type %T is not an integer", v)
	}
}
