package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKeyPrefix = "cosmos:ratelimit"

// RedisLimiter counts tenant requests in wall-clock aligned windows stored in
// Redis, so every replica of the service draws from the same tenant budget.
type RedisLimiter struct {
	client redis.Scripter
	prefix string
	now    func() time.Time
}

// hitScript counts one request in the window named by KEYS[1]. The first hit
// pins the key's expiry to the window end, ARGV[1] in unix milliseconds.
var hitScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIREAT", KEYS[1], ARGV[1])
end
return hits
`)

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Now       func() time.Time
}

func NewRedisLimiter(cfg RedisConfig) (*RedisLimiter, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisLimiterWithClient(client, cfg.KeyPrefix, cfg.Now), nil
}

func NewRedisLimiterWithClient(client redis.Scripter, prefix string, now func() time.Time) *RedisLimiter {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &RedisLimiter{client: client, prefix: prefix, now: now}
}

// Allow records a hit for bucket, typically "tenant:<id>:route:<route>".
func (r *RedisLimiter) Allow(ctx context.Context, bucket string, limit int, size time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	start, end := windowBounds(r.now(), size)
	hits, err := hitScript.Run(ctx, r.client, []string{r.windowKey(bucket, start)}, end.UnixMilli()).Int64()
	if err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("redis rate limit %s: %w", bucket, err)
	}
	return windowDecision(hits, limit, end), nil
}

// windowKey wraps the bucket in a hash tag so all windows of one tenant route
// land in the same cluster slot.
func (r *RedisLimiter) windowKey(bucket string, start time.Time) string {
	return fmt.Sprintf("%s:{%s}:%d", r.prefix, bucket, start.UnixMilli())
}

func windowBounds(now time.Time, size time.Duration) (time.Time, time.Time) {
	if size < time.Millisecond {
		size = time.Second
	}
	start := now.Truncate(size)
	return start, start.Add(size)
}

func windowDecision(hits int64, limit int, end time.Time) domain.RateLimitDecision {
	remaining := limit - int(hits)
	if remaining < 0 {
		remaining = 0
	}
	return domain.RateLimitDecision{
		Allowed:   hits <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   end,
	}
}
