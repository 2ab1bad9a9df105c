// Package ratelimit counts requests per key in fixed windows shared through
// Redis, so every API replica enforces the same budget.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "ledger:rate_limit"

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Count      int
	Limit      int
	RetryAfter time.Duration
}

// Remaining is how many requests are left in the current window.
func (d Decision) Remaining() int {
	if r := d.Limit - d.Count; r > 0 {
		return r
	}
	return 0
}

type Limiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// New allows limit requests per window for each key. A nil client or a
// non-positive limit disables limiting.
func New(client redis.UniversalClient, prefix string, limit int, window time.Duration) *Limiter {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultPrefix
	}
	if window < time.Second {
		window = time.Second
	}
	return &Limiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.client != nil && l.limit > 0
}

// Allow counts one request against scope and subject.
func (l *Limiter) Allow(ctx context.Context, scope, subject string) (Decision, error) {
	if !l.Enabled() {
		return Decision{Allowed: true}, nil
	}

	key := fmt.Sprintf("%s:%s:%s", l.prefix, scope, subject)
	windowMs := l.window.Milliseconds()

	raw, err := fixedWindowScript.Run(ctx, l.client, []string{key}, windowMs).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit.Allow: %w", err)
	}

	values, ok := raw.([]any)
	if !ok || len(values) != 2 {
		return Decision{}, fmt.Errorf("ratelimit.Allow: unexpected response shape %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return Decision{}, fmt.Errorf("ratelimit.Allow: unexpected count type %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok || ttlMs < 0 {
		ttlMs = windowMs
	}

	retry := time.Duration(math.Ceil(float64(ttlMs)/1000)) * time.Second
	if retry < time.Second {
		retry = time.Second
	}

	return Decision{
		Allowed:    int(count) <= l.limit,
		Count:      int(count),
		Limit:      l.limit,
		RetryAfter: retry,
	}, nil
}
