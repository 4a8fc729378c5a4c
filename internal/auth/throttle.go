package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const throttleKeyPrefix = "login:fail:"

// LoginThrottle gates repeated failed login attempts per email using Redis
// counters. It is strictly best-effort: any Redis failure lets the attempt
// through so a degraded cache can never lock users out.
type LoginThrottle struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewLoginThrottle builds a throttle allowing max failures per window.
func NewLoginThrottle(client *redis.Client, max int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{client: client, max: max, window: window}
}

// Allow reports whether a login attempt for email may proceed.
func (t *LoginThrottle) Allow(ctx context.Context, email string) bool {
	if t == nil || t.client == nil || t.max <= 0 {
		return true
	}
	count, err := t.client.Get(ctx, throttleKeyPrefix+email).Int()
	if err != nil {
		return true
	}
	return count < t.max
}

// RecordFailure counts a failed attempt; the first failure starts the window.
func (t *LoginThrottle) RecordFailure(ctx context.Context, email string) {
	if t == nil || t.client == nil {
		return
	}
	key := throttleKeyPrefix + email
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return
	}
	if count == 1 {
		t.client.Expire(ctx, key, t.window)
	}
}

// Reset clears the failure counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, email string) {
	if t == nil || t.client == nil {
		return
	}
	t.client.Del(ctx, throttleKeyPrefix+email)
}
