package ratelimit

import (
	"github.com/OussamaEt-taghy/soficosmos/internal/config"
	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
)

// FromConfig picks Redis when REDIS_ADDR is set and the in-process limiter
// otherwise. It returns nil when rate limiting is off.
func FromConfig(cfg config.Config) (domain.RateLimiter, error) {
	if cfg.RateLimitRequests <= 0 {
		return nil, nil
	}
	if cfg.RedisAddr != "" {
		limiter, err := NewRedisLimiter(RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return limiter, nil
	}
	return NewMemoryLimiter(MemoryConfig{MaxKeys: cfg.RateLimitMaxKeys}), nil
}
