package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validConfig = `port: "8083"
stripeSecretKey: sk_test_x
stripeWebhookSecret: whsec_x
stripePriceMonthly: price_m
stripePriceYearly: price_y
successURL: http://localhost:5173/success
cancelURL: http://localhost:5173/pricing
promoCoupons:
  " aina20 ": coupon_aina
  PEPE20: coupon_pepe
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadNormalizesPromoCodes(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PromoCoupons["AINA20"] != "coupon_aina" || cfg.PromoCoupons["PEPE20"] != "coupon_pepe" {
		t.Fatalf("unexpected coupons %v", cfg.PromoCoupons)
	}
}

func TestLoadRequiresStripeSettings(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	_, err := Load(writeConfig(t, "port: \"8083\"\n"))
	if err == nil || !strings.Contains(err.Error(), "stripeSecretKey is required") {
		t.Fatalf("expected stripe key error, got %v", err)
	}
}
