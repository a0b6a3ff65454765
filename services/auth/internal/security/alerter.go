package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// rule is the alert threshold for one event/outcome pair.
type rule struct {
	threshold int64
	window    time.Duration
}

// Rules are keyed by "event|outcome"; "*|outcome" matches any event.
var rules = map[string]rule{
	"auth.login|fail":           {10, 5 * time.Minute},
	"auth.signup|fail":          {10, 5 * time.Minute},
	"auth.logout|fail":          {15, 5 * time.Minute},
	"auth.password.change|fail": {15, 5 * time.Minute},
	"auth.authorize|fail":       {25, 5 * time.Minute},
	"*|rate_limited":            {20, time.Minute},
}

func lookupRule(event, outcome string) (rule, bool) {
	if r, ok := rules[event+"|"+outcome]; ok {
		return r, true
	}
	r, ok := rules["*|"+outcome]
	return r, ok
}

// AlertResult reports the counter after one observation.
type AlertResult struct {
	Triggered bool
	Count     int64
	Threshold int64
	Window    time.Duration
}

// AuditAlerter counts security events per client IP in fixed Redis windows.
type AuditAlerter struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewAuditAlerter returns nil when rdb is nil. A nil alerter observes nothing.
func NewAuditAlerter(rdb redis.UniversalClient, prefix string) *AuditAlerter {
	if rdb == nil {
		return nil
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = "aina:auth:alerts"
	}
	return &AuditAlerter{rdb: rdb, prefix: prefix}
}

// Observe counts one event. Outcomes without a rule are ignored.
func (a *AuditAlerter) Observe(ctx context.Context, event, outcome, ip string) (AlertResult, error) {
	if a == nil {
		return AlertResult{}, nil
	}
	r, ok := lookupRule(event, outcome)
	if !ok {
		return AlertResult{}, nil
	}
	bucket := time.Now().UnixMilli() / r.window.Milliseconds()
	key := fmt.Sprintf("%s:%s:%s:%s:%d", a.prefix, keyPart(event), keyPart(outcome), keyPart(ip), bucket)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var incr *redis.IntCmd
	_, err := a.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.PExpire(ctx, key, r.window)
		return nil
	})
	if err != nil {
		return AlertResult{}, fmt.Errorf("alert counter: %w", err)
	}
	n := incr.Val()
	return AlertResult{Triggered: n >= r.threshold, Count: n, Threshold: r.threshold, Window: r.window}, nil
}

func keyPart(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return strings.Map(func(c rune) rune {
		switch c {
		case ':', '|', ' ':
			return '_'
		}
		return c
	}, s)
}
