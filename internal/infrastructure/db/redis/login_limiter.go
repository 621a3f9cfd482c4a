package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultLockout     = 15 * time.Minute
)

// LoginLimiter counts failed logins per email and locks the email once the
// count reaches maxAttempts within the lockout window.
// Key format: login:attempts:<email> and login:locked:<email>
type LoginLimiter struct {
	client      *redis.Client
	maxAttempts int
	lockout     time.Duration
}

// NewLoginLimiter creates a LoginLimiter wrapping the given Redis client.
// Non-positive settings fall back to 5 attempts and a 15 minute lockout.
func NewLoginLimiter(client *redis.Client, maxAttempts int, lockout time.Duration) *LoginLimiter {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if lockout <= 0 {
		lockout = defaultLockout
	}
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, lockout: lockout}
}

// Locked reports whether logins for email are currently locked.
func (l *LoginLimiter) Locked(ctx context.Context, email string) (bool, error) {
	n, err := l.client.Exists(ctx, l.lockKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("login limiter check: %w", err)
	}
	return n > 0, nil
}

// RecordFailure counts one failed login and reports whether it locked email.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) (bool, error) {
	key := l.attemptsKey(email)

	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("login limiter incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.lockout).Err(); err != nil {
			return false, fmt.Errorf("login limiter expire: %w", err)
		}
	}
	if n < int64(l.maxAttempts) {
		return false, nil
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, l.lockKey(email), "1", l.lockout)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("login limiter lock: %w", err)
	}
	return true, nil
}

// Reset clears the failure counter and any lock for email.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	return l.client.Del(ctx, l.attemptsKey(email), l.lockKey(email)).Err()
}

func (l *LoginLimiter) attemptsKey(email string) string {
	return "login:attempts:" + strings.ToLower(email)
}

func (l *LoginLimiter) lockKey(email string) string {
	return "login:locked:" + strings.ToLower(email)
}
