// Package entitlement enforces the per-user daily recommendation quota.
package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrQuotaExceeded is returned when the user has used up today's runs.
var ErrQuotaExceeded = fmt.Errorf("daily recommendation quota exceeded")

// QuotaGuard counts pipeline runs per user per day in redis. A limit of 0
// disables the quota entirely. Redis being unavailable degrades open: the
// run is allowed and the failure logged, so a cache outage never blocks
// recommendations.
type QuotaGuard struct {
	rdb    *redis.Client
	limit  int64
	logger *zap.Logger
}

// NewQuotaGuard returns a guard allowing limit runs per user per UTC day.
func NewQuotaGuard(rdb *redis.Client, limit int, logger *zap.Logger) *QuotaGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuotaGuard{rdb: rdb, limit: int64(limit), logger: logger}
}

// Authorize increments today's counter for userID and rejects the call once
// the counter passes the limit. The slot is consumed even when the run later
// fails; a retry after a failure is a new run.
func (g *QuotaGuard) Authorize(ctx context.Context, userID string) error {
	if g.limit <= 0 {
		return nil
	}

	key := fmt.Sprintf("quota:%s:%s", userID, time.Now().UTC().Format("2006-01-02"))

	n, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		g.logger.Warn("quota counter unavailable, allowing run",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil
	}
	if n == 1 {
		// First run of the day owns the key; expire it after the day ends.
		g.rdb.Expire(ctx, key, 48*time.Hour)
	}

	if n > g.limit {
		return fmt.Errorf("%w: %d of %d used", ErrQuotaExceeded, n-1, g.limit)
	}
	return nil
}
