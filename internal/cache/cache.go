// Package cache stores recommendation bundles in redis, keyed by
// (user, fingerprint) with a fixed TTL. Staleness is resolved by TTL alone:
// a preference edit changes the fingerprint itself, which busts the cache
// without any invalidation signaling.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"extendwork/recommend-service/internal/model"
)

// TTL is how long a cached bundle stays valid.
const TTL = 24 * time.Hour

// ErrMiss is returned when no valid entry exists for (user, fingerprint).
var ErrMiss = errors.New("cache miss")

// ResultCache is a redis-backed recommendation cache.
type ResultCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New returns a ResultCache with the default TTL.
func New(rdb *redis.Client, logger *zap.Logger) *ResultCache {
	return &ResultCache{rdb: rdb, ttl: TTL, logger: logger}
}

// NewWithTTL returns a ResultCache with a custom TTL. Used in tests.
func NewWithTTL(rdb *redis.Client, logger *zap.Logger, ttl time.Duration) *ResultCache {
	return &ResultCache{rdb: rdb, ttl: ttl, logger: logger}
}

func key(userID, fp string) string {
	return fmt.Sprintf("rec:%s:%s", userID, fp)
}

// Get returns the cached entry for (userID, fingerprint) or ErrMiss.
// Expired entries are evicted by redis and surface as a miss; an undecodable
// payload is treated as a miss as well.
func (c *ResultCache) Get(ctx context.Context, userID, fingerprint string) (*model.CacheEntry, error) {
	raw, err := c.rdb.Get(ctx, key(userID, fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var entry model.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("dropping undecodable cache entry",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		c.rdb.Del(ctx, key(userID, fingerprint))
		return nil, ErrMiss
	}

	return &entry, nil
}

// Put upserts the entry for (userID, fingerprint). Last write wins; the
// entry is always a full overwrite so concurrent writers need no locking.
func (c *ResultCache) Put(ctx context.Context, userID, fingerprint string, entry *model.CacheEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}

	if err := c.rdb.Set(ctx, key(userID, fingerprint), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}

	return nil
}
