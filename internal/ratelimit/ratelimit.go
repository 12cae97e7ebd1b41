package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Atomic INCR that starts the window on the first hit and reports the
// remaining TTL in milliseconds.
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed    bool
	Count      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a fixed-window counter shared by every API instance.
type Limiter struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

// New builds a limiter allowing max hits per window for each key.
func New(client *redis.Client, prefix string, max int, window time.Duration) *Limiter {
	return &Limiter{client: client, prefix: prefix, max: max, window: window}
}

// Enabled reports whether the limiter enforces anything.
func (l *Limiter) Enabled() bool {
	return l != nil && l.client != nil && l.max > 0 && l.window > 0
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if !l.Enabled() {
		return Decision{Allowed: true}, nil
	}

	res, err := incrExpireScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{Allowed: true}, err
	}
	count, ttl := int(res[0]), res[1]

	d := Decision{Count: count, Allowed: count <= l.max, Remaining: l.max - count}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !d.Allowed && ttl > 0 {
		d.RetryAfter = time.Duration(ttl) * time.Millisecond
	}
	return d, nil
}

// Reset clears the counter for key, e.g. after a successful login.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}
	return l.client.Del(ctx, l.prefix+key).Err()
}
