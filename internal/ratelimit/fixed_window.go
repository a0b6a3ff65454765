package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Returns {count, pttl} for the window key, creating it on first hit.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1])}
`)

// Config describes one limiter.
type Config struct {
	Prefix string
	Limit  int
	Window time.Duration
	// FailOpen lets requests through when Redis is unavailable.
	FailOpen bool
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// FixedWindowLimiter counts hits per key in Redis-backed fixed windows.
type FixedWindowLimiter struct {
	client redis.UniversalClient
	cfg    Config
}

// NewFixedWindowLimiter builds a limiter on an existing Redis client.
func NewFixedWindowLimiter(client redis.UniversalClient, cfg Config) (*FixedWindowLimiter, error) {
	if client == nil {
		return nil, errors.New("rate limiter requires a redis client")
	}
	if cfg.Limit <= 0 || cfg.Window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	cfg.Prefix = strings.TrimSpace(cfg.Prefix)
	if cfg.Prefix == "" {
		cfg.Prefix = "aina:ratelimit"
	}
	return &FixedWindowLimiter{client: client, cfg: cfg}, nil
}

// Allow records a hit for key. A nil limiter allows everything.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) Decision {
	if l == nil {
		return Decision{Allowed: true}
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	windowMs := l.cfg.Window.Milliseconds()
	slot := time.Now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.cfg.Prefix, key, slot)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	res, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64Slice()
	if err != nil || len(res) != 2 {
		slog.Warn("rate limiter unavailable", "prefix", l.cfg.Prefix, "fail_open", l.cfg.FailOpen, "err", err)
		return Decision{Allowed: l.cfg.FailOpen, RetryAfter: time.Second}
	}
	count, pttl := res[0], res[1]
	if count <= int64(l.cfg.Limit) {
		return Decision{Allowed: true, Remaining: l.cfg.Limit - int(count)}
	}
	retry := time.Duration(pttl) * time.Millisecond
	if retry <= 0 {
		retry = l.cfg.Window
	}
	return Decision{Allowed: false, RetryAfter: retry}
}
