package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linkpulse/linkpulse/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyConversionSource = "conversion:ingest:source:%s"

// ConversionLimiter throttles conversion webhooks per source address.
// A nil limiter means the feature is off and everything is allowed.
type ConversionLimiter struct {
	enabled bool

	bucket *TokenBucket

	rate  float64
	burst int
}

func NewConversionLimiter(cfg config.Config) (*ConversionLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.ConversionRate <= 0 || limitCfg.ConversionBurst <= 0 {
		return nil, errors.New("conversion rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &ConversionLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.ConversionRate,
		burst:   limitCfg.ConversionBurst,
	}, nil
}

func (l *ConversionLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowSource consumes one token for the source address. When the
// limiter is unreachable the caller decides whether to fail open.
func (l *ConversionLimiter) AllowSource(ctx context.Context, source string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}

	source = strings.TrimSpace(source)
	if source == "" {
		source = "unknown"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyConversionSource, source), l.rate, l.burst)
}

// RetryAfterSeconds rounds the wait up to whole seconds for the
// Retry-After header.
func RetryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	seconds := int((d + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
