// Package ratelimit guards the API with a per-user token bucket backed by
// Redis. When Redis is not configured the limiter disables itself and every
// request passes.
package ratelimit

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/propfolio/backend/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyUserRequests = "ratelimit:user:%s"

type RequestLimiter struct {
	enabled bool
	log     *zap.Logger

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewRequestLimiter(cfg config.Config, rdb *redis.Client, log *zap.Logger) *RequestLimiter {
	if !cfg.RateLimitEnabled || rdb == nil {
		return &RequestLimiter{log: log}
	}
	if cfg.RateLimitRate <= 0 || cfg.RateLimitBurst <= 0 {
		log.Warn("rate limit enabled with non-positive rate or burst; limiter disabled")
		return &RequestLimiter{log: log}
	}
	return &RequestLimiter{
		enabled: true,
		log:     log,
		bucket:  NewTokenBucket(rdb),
		rate:    cfg.RateLimitRate,
		burst:   cfg.RateLimitBurst,
	}
}

func (l *RequestLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowUser consumes one request token for the user. A Redis failure fails
// open: the request is allowed and the error logged.
func (l *RequestLimiter) AllowUser(ctx context.Context, userID snowflake.ID) Result {
	if !l.Enabled() {
		return Result{Allowed: true}
	}
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyUserRequests, userID.String()), l.rate, l.burst)
	if err != nil {
		l.log.Warn("rate limit check failed; allowing request", zap.Error(err))
		return Result{Allowed: true}
	}
	return res
}
