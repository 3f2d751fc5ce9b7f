package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrResendRateLimited        = errors.New("verification resend rate limited")
	ErrResendLimiterUnavailable = errors.New("verification resend limiter unavailable")
)

type ResendConfig struct {
	EnableIPThrottle bool
	Window           time.Duration
	MaxAttempts      int
}

// ResendLimiter bounds how often a verification email can be re-sent, per
// sign-up attempt and optionally per client IP.
type ResendLimiter struct {
	redis  redis.UniversalClient
	config ResendConfig
}

func NewResendLimiter(redisClient redis.UniversalClient, cfg ResendConfig) *ResendLimiter {
	return &ResendLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *ResendLimiter) Check(ctx context.Context, signUpID, ip string) error {
	if err := l.enforceFixedWindow(ctx, resendAttemptKey(signUpID)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, resendIPKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

func (l *ResendLimiter) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResendLimiterUnavailable, err)
	}

	// Fixed-window semantics: set the TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrResendLimiterUnavailable, err)
		}
	}

	if count > int64(l.config.MaxAttempts) {
		return ErrResendRateLimited
	}

	return nil
}

func resendAttemptKey(signUpID string) string {
	return "afvr:" + signUpID
}

func resendIPKey(ip string) string {
	return "afvrip:" + ip
}
