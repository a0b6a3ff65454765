package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfig(t, "port: \"8081\"\njwtSecret: \"0123456789abcdef0123456789abcdef\"\nloginRateLimitPerMinute: 5\n")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("AUTH_LOGIN_RATE_LIMIT_PER_MINUTE", "12")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://aina.studio ,")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RedisAddr != "redis:6379" || cfg.LoginRateLimitPerMinute != 12 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://aina.studio" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing port", "jwtSecret: \"0123456789abcdef0123456789abcdef\"\n", "port is required"},
		{"missing secret", "port: \"8081\"\n", "jwtSecret is required"},
		{"short secret", "port: \"8081\"\njwtSecret: short\n", "at least 32 bytes"},
		{"negative limit", "port: \"8081\"\njwtSecret: \"0123456789abcdef0123456789abcdef\"\nsignupRateLimitPerMinute: -1\n", "rate limits"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadParsesDurations(t *testing.T) {
	base := "port: \"8081\"\njwtSecret: \"0123456789abcdef0123456789abcdef\"\n"
	cfg, err := Load(writeConfig(t, base+"sessionTTL: 12h\njwtLeeway: 30s\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SessionTTLDuration != 12*time.Hour || cfg.JWTLeewayDuration != 30*time.Second {
		t.Fatalf("unexpected durations: %s %s", cfg.SessionTTLDuration, cfg.JWTLeewayDuration)
	}

	t.Setenv("AUTH_SESSION_TTL", "soon")
	if _, err := Load(writeConfig(t, base)); err == nil || !strings.Contains(err.Error(), "sessionTTL") {
		t.Fatalf("expected sessionTTL parse error, got %v", err)
	}
}
