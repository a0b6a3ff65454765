package security

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newAlerter(t *testing.T) *AuditAlerter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAuditAlerter(client, "test:alerts")
}

func TestAuditAlerterObserveTriggers(t *testing.T) {
	alerter := newAlerter(t)
	var last AlertResult
	for i := 0; i < 10; i++ {
		result, err := alerter.Observe(context.Background(), "auth.login", "fail", "127.0.0.1")
		if err != nil {
			t.Fatalf("observe: %v", err)
		}
		if i < 9 && result.Triggered {
			t.Fatalf("triggered early at attempt %d", i+1)
		}
		last = result
	}
	if !last.Triggered || last.Count != 10 {
		t.Fatalf("expected trigger on 10th failure, got %+v", last)
	}
}

func TestAuditAlerterCountsPerIP(t *testing.T) {
	alerter := newAlerter(t)
	for i := 0; i < 9; i++ {
		if _, err := alerter.Observe(context.Background(), "auth.signup", "fail", "10.0.0.1"); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}
	result, err := alerter.Observe(context.Background(), "auth.signup", "fail", "10.0.0.2")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if result.Count != 1 || result.Triggered {
		t.Fatalf("expected independent counter, got %+v", result)
	}
}

func TestAuditAlerterObserveIgnoresUnknownRule(t *testing.T) {
	alerter := newAlerter(t)
	result, err := alerter.Observe(context.Background(), "auth.login", "success", "127.0.0.1")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if result.Triggered || result.Count != 0 {
		t.Fatalf("unexpected evaluation for success outcome: %+v", result)
	}
}

func TestNilAlerterIsNoop(t *testing.T) {
	var alerter *AuditAlerter
	if _, err := alerter.Observe(context.Background(), "auth.login", "fail", "x"); err != nil {
		t.Fatalf("nil alerter: %v", err)
	}
	if NewAuditAlerter(nil, "") != nil {
		t.Fatal("expected nil alerter without client")
	}
}

func TestRateLimitedRuleAppliesToAnyEvent(t *testing.T) {
	alerter := newAlerter(t)
	result, err := alerter.Observe(context.Background(), "auth.login", "rate_limited", "10.0.0.9")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if result.Count != 1 || result.Threshold != 20 {
		t.Fatalf("expected rate_limited rule, got %+v", result)
	}
}
