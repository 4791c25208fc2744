package notification

import (
	"context"
	"strings"
	"time"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
	"github.com/shopforge/commerce-backend/internal/platform/redisx"
)

// RateLimiter is a redis-backed counter keyed by channel. It fails open:
// any redis error counts as an allow so a degraded redis never blocks
// customer notifications.
type RateLimiter struct {
	client  redisx.Cmd
	log     *logger.Logger
	metrics *observability.Metrics

	keyPrefix string
	limit     int64
	window    time.Duration
}

func NewRateLimiter(client redisx.Cmd, baseLog *logger.Logger, metrics *observability.Metrics, limit int64, window time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	if window < time.Second {
		window = time.Second
	}
	return &RateLimiter{
		client:    client,
		log:       baseLog.With("service", "RateLimiter"),
		metrics:   metrics,
		keyPrefix: "notification_rate",
		limit:     limit,
		window:    window,
	}
}

// Allow reports whether the channel may send the given amount inside the
// current window.
func (rl *RateLimiter) Allow(ctx context.Context, channel string, amount int64) bool {
	if rl == nil || amount <= 0 || rl.client == nil {
		return true
	}

	key := rl.keyPrefix + ":" + strings.ToLower(channel)
	count, err := rl.client.IncrBy(ctx, key, amount).Result()
	if err != nil {
		rl.metrics.IncRateLimiterError("incrby")
		rl.log.Warn("rate limit incrby failed", "key", key, "error", err)
		return true
	}
	if count == amount {
		if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
			rl.metrics.IncRateLimiterError("expire")
			rl.log.Warn("rate limit expire failed", "key", key, "error", err)
		}
	}
	if count > rl.limit {
		if err := rl.client.DecrBy(ctx, key, amount).Err(); err != nil {
			rl.metrics.IncRateLimiterError("decrby")
			rl.log.Warn("rate limit decrby failed", "key", key, "error", err)
			return true
		}
		return false
	}
	return true
}
