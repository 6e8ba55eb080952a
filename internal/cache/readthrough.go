package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/steemit/bookmarks/pkg/logging"
)

// GetOrCompute returns the cached value for key, or calls compute, stores
// the result for ttl and returns it. The cache is advisory: store failures
// are logged and never fail the read. Errors from compute are returned
// as-is and nothing is cached for them.
func GetOrCompute[T any](ctx context.Context, store Store, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	if store == nil {
		return compute(ctx)
	}

	logger := logging.WithComponent("cache")

	data, err := store.Get(ctx, key)
	switch {
	case err == nil:
		var cached T
		jsonErr := json.Unmarshal(data, &cached)
		if jsonErr == nil {
			return cached, nil
		}
		logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(jsonErr))
	case !errors.Is(err, ErrMiss):
		logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Cache encode failed", zap.String("key", key), zap.Error(err))
		return value, nil
	}
	if err := store.Set(ctx, key, encoded, ttl); err != nil {
		logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

// Invalidate removes keys, logging rather than returning failures
func Invalidate(ctx context.Context, store Store, keys ...string) {
	if store == nil || len(keys) == 0 {
		return
	}
	if err := store.Delete(ctx, keys...); err != nil {
		logging.WithComponent("cache").Warn("Cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
