package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file, relative to the working directory.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                     string   `yaml:"port"`
	DatabaseURL              string   `yaml:"databaseURL"`
	RedisAddr                string   `yaml:"redisAddr"`
	RedisPassword            string   `yaml:"redisPassword"`
	SessionTTL               string   `yaml:"sessionTTL"`
	LogLevel                 string   `yaml:"logLevel"`
	JWTSecret                string   `yaml:"jwtSecret"`
	JWTIssuer                string   `yaml:"jwtIssuer"`
	JWTAudience              string   `yaml:"jwtAudience"`
	JWTLeeway                string   `yaml:"jwtLeeway"`
	SignupRateLimitPerMinute int      `yaml:"signupRateLimitPerMinute"`
	LoginRateLimitPerMinute  int      `yaml:"loginRateLimitPerMinute"`
	CORSOrigins              []string `yaml:"corsOrigins"`
	TrustedProxyCIDRs        []string `yaml:"trustedProxyCidrs"`

	// Parsed from SessionTTL and JWTLeeway. Zero means unset.
	SessionTTLDuration time.Duration `yaml:"-"`
	JWTLeewayDuration  time.Duration `yaml:"-"`
}

// Load reads config from path (defaults to config.yaml), applies environment
// overrides and validates the result.
func Load(path string) (FileConfig, error) {
	var cfg FileConfig
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	for env, dst := range map[string]*string{
		"PORT":             &cfg.Port,
		"DATABASE_URL":     &cfg.DatabaseURL,
		"REDIS_ADDR":       &cfg.RedisAddr,
		"REDIS_PASSWORD":   &cfg.RedisPassword,
		"LOG_LEVEL":        &cfg.LogLevel,
		"JWT_SECRET":       &cfg.JWTSecret,
		"JWT_ISSUER":       &cfg.JWTIssuer,
		"JWT_AUDIENCE":     &cfg.JWTAudience,
		"JWT_LEEWAY":       &cfg.JWTLeeway,
		"AUTH_SESSION_TTL": &cfg.SessionTTL,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	for env, dst := range map[string]*int{
		"AUTH_SIGNUP_RATE_LIMIT_PER_MINUTE": &cfg.SignupRateLimitPerMinute,
		"AUTH_LOGIN_RATE_LIMIT_PER_MINUTE":  &cfg.LoginRateLimitPerMinute,
	} {
		if n, err := strconv.Atoi(os.Getenv(env)); err == nil {
			*dst = n
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}

	if cfg.SessionTTLDuration, err = optionalDuration("sessionTTL", cfg.SessionTTL); err != nil {
		return cfg, err
	}
	if cfg.JWTLeewayDuration, err = optionalDuration("jwtLeeway", cfg.JWTLeeway); err != nil {
		return cfg, err
	}
	return cfg, validateConfig(cfg)
}

func validateConfig(cfg FileConfig) error {
	switch {
	case cfg.Port == "":
		return errors.New("config: port is required (set in config.yaml)")
	case strings.TrimSpace(cfg.JWTSecret) == "":
		return errors.New("config: jwtSecret is required (set JWT_SECRET)")
	case len(cfg.JWTSecret) < 32:
		return errors.New("config: jwtSecret must be at least 32 bytes")
	case cfg.SignupRateLimitPerMinute < 0 || cfg.LoginRateLimitPerMinute < 0:
		return errors.New("config: rate limits must be >= 0")
	case cfg.SessionTTLDuration < 0 || cfg.JWTLeewayDuration < 0:
		return errors.New("config: durations must be >= 0")
	}
	return nil
}

func optionalDuration(name, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s duration: %w", name, err)
	}
	return d, nil
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
