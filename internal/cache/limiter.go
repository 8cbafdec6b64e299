package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/trustdrive/stagelink/internal/config"
)

// Limiter implements fixed-window rate limiting. It fronts the public
// parcel lookup endpoint so order codes cannot be guessed in bulk.
type Limiter interface {
	// Allow increments the counter for key and reports whether the caller
	// is still within limit for the window.
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// LimiterModule provides the rate limiter to the Fx graph.
var LimiterModule = fx.Provide(NewLimiter)

// NewLimiter builds a limiter backed by the configured cache driver. With
// the noop driver (or rate limiting disabled) every request is allowed.
func NewLimiter(cfg config.Config, store Store, logger *zap.Logger) (Limiter, error) {
	if !cfg.RateLimit.Enabled || cfg.Cache.Driver == "noop" {
		if logger != nil {
			logger.Info("rate limiting disabled; using noop limiter")
		}
		return noopLimiter{}, nil
	}

	rs, ok := store.(*redisStore)
	if !ok {
		return nil, fmt.Errorf("rate limiting requires the redis cache driver")
	}
	return &redisLimiter{client: rs.client}, nil
}

type noopLimiter struct{}

func (noopLimiter) Allow(context.Context, string, int64, time.Duration) (bool, error) {
	return true, nil
}

type redisLimiter struct {
	client *goredis.Client
}

// Allow runs INCR and EXPIRE in one transaction; the TTL is refreshed on
// every hit, which biases toward rejecting sustained probing.
func (l *redisLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	if key == "" {
		return true, nil
	}
	bucket := keyNamespace + "ratelimit:" + key
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}
	return incr.Val() <= limit, nil
}
