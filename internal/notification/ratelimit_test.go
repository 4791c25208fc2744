package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/testutil"
)

type fakeRedis struct {
	counts    map[string]int64
	ttls      map[string]time.Duration
	incrErr   error
	expireErr error
	decrErr   error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	cmd.SetErr(redis.Nil)
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	return redis.NewStatusCmd(ctx)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return redis.NewIntCmd(ctx)
}

func (f *fakeRedis) IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.incrErr != nil {
		cmd.SetErr(f.incrErr)
		return cmd
	}
	f.counts[key] += value
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeRedis) DecrBy(ctx context.Context, key string, value int64) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.decrErr != nil {
		cmd.SetErr(f.decrErr)
		return cmd
	}
	f.counts[key] -= value
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeRedis) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if f.expireErr != nil {
		cmd.SetErr(f.expireErr)
		return cmd
	}
	f.ttls[key] = ttl
	cmd.SetVal(true)
	return cmd
}

func newLimiter(t *testing.T, client *fakeRedis, limit int64) *RateLimiter {
	t.Helper()
	return NewRateLimiter(client, testutil.Logger(t), observability.NewForTest(), limit, time.Minute)
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	client := newFakeRedis()
	limiter := newLimiter(t, client, 3)
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "Email", 1))
	assert.True(t, limiter.Allow(ctx, "email", 2))
	assert.Equal(t, int64(3), client.counts["notification_rate:email"])
	assert.Equal(t, time.Minute, client.ttls["notification_rate:email"])
}

func TestRateLimiterDeniesAndRollsBack(t *testing.T) {
	client := newFakeRedis()
	limiter := newLimiter(t, client, 3)
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "email", 3))
	assert.False(t, limiter.Allow(ctx, "email", 1))
	// the denied amount was decremented back
	assert.Equal(t, int64(3), client.counts["notification_rate:email"])
}

func TestRateLimiterFailsOpen(t *testing.T) {
	client := newFakeRedis()
	client.incrErr = errors.New("connection refused")
	limiter := newLimiter(t, client, 1)
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "email", 5))

	// decrby failure on an over-limit call still allows
	client = newFakeRedis()
	client.counts["notification_rate:sms"] = 10
	client.decrErr = errors.New("connection refused")
	limiter = newLimiter(t, client, 1)
	assert.True(t, limiter.Allow(ctx, "sms", 1))
}

func TestRateLimiterZeroAmountAndNilClient(t *testing.T) {
	limiter := newLimiter(t, newFakeRedis(), 1)
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "email", 0))
	assert.True(t, limiter.Allow(ctx, "email", -2))

	var disabled *RateLimiter
	assert.True(t, disabled.Allow(ctx, "email", 100))
}
