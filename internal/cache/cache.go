package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/steemit/bookmarks/pkg/config"
)

var (
	// ErrCacheDisabled is returned when cache operations are attempted but cache is disabled
	ErrCacheDisabled = errors.New("cache is disabled")

	// ErrMiss is returned by Get when the key is absent or expired
	ErrMiss = errors.New("cache miss")
)

// Store is a byte-oriented key/value store with per-entry TTL
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// New builds the store selected by the configuration
func New(cfg *config.CacheConfig, redisCfg *config.RedisConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(cfg.Prefix, cfg.MaxEntries), nil
	case "redis":
		store, err := NewRedisStore(redisCfg, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// CountKey is the key of the cached bookmark count of a post
func CountKey(postID int64) string {
	return fmt.Sprintf("count:%d", postID)
}

// ListKey is the key of the cached bookmark list of a user
func ListKey(userID int64) string {
	return fmt.Sprintf("bookmarks:%d", userID)
}

// PairKey is the key of the cached bookmark state of a (user, post) pair
func PairKey(userID, postID int64) string {
	return fmt.Sprintf("is_bookmarked:%d:%d", userID, postID)
}
