// Package cache is the key/value store behind terminal sessions.
//
// Connect tries Redis first; when Redis is unreachable the process falls
// back to an in-memory store so a single front-end instance still works.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/yellowrose/possrv/config"
	"github.com/yellowrose/possrv/pkg/logger"
	"github.com/yellowrose/possrv/pkg/metrics"
)

// ErrMiss is returned by Store.Get when key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store holds raw JSON values with a TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Driver() string
}

// Default is the process-wide store. Connect replaces it.
var Default Store = NewMemory()

// Connect points Default at Redis, or keeps the memory store if Redis does not answer.
func Connect(ctx context.Context) error {
	rs, err := NewRedis(ctx, config.RedisAddr(), config.RedisPassword())
	if err != nil {
		logger.Warn("cache: redis unavailable, using memory store", "addr", config.RedisAddr(), "error", err)
		Default = NewMemory()
		return err
	}
	Default = rs
	return nil
}

// Get unmarshals the value under key into dest. Returns true on a hit.
func Get(ctx context.Context, key string, dest interface{}) bool {
	raw, err := Default.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			logger.Warn("cache: get failed", "key", key, "error", err)
		}
		metrics.CacheMisses.WithLabelValues(Default.Driver()).Inc()
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		metrics.CacheMisses.WithLabelValues(Default.Driver()).Inc()
		return false
	}

	metrics.CacheHits.WithLabelValues(Default.Driver()).Inc()
	return true
}

// Set stores value as JSON under key for ttl.
func Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Default.Set(ctx, key, data, ttl)
}

// Forget removes key.
func Forget(ctx context.Context, key string) error {
	return Default.Del(ctx, key)
}
