package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrResetRateLimited        = errors.New("reset email rate limited")
	ErrResetLimiterUnavailable = errors.New("reset email limiter unavailable")
)

type ResetEmailConfig struct {
	EnableIPThrottle bool
	Window           time.Duration
	MaxAttempts      int
}

// ResetEmailLimiter bounds how often a password reset email can be requested,
// per identifier and optionally per client IP.
type ResetEmailLimiter struct {
	redis  redis.UniversalClient
	config ResetEmailConfig
}

func NewResetEmailLimiter(redisClient redis.UniversalClient, cfg ResetEmailConfig) *ResetEmailLimiter {
	return &ResetEmailLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *ResetEmailLimiter) Check(ctx context.Context, identifier, ip string) error {
	if err := l.enforceFixedWindow(ctx, resetIdentifierKey(identifier)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, resetIPKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

func (l *ResetEmailLimiter) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResetLimiterUnavailable, err)
	}

	// Fixed-window semantics: set the TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrResetLimiterUnavailable, err)
		}
	}

	if count > int64(l.config.MaxAttempts) {
		return ErrResetRateLimited
	}

	return nil
}

func resetIdentifierKey(identifier string) string {
	return "afpr:" + strings.ToLower(identifier)
}

func resetIPKey(ip string) string {
	return "afprip:" + ip
}
