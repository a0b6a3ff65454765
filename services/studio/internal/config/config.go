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
	Port                string   `yaml:"port"`
	LogLevel            string   `yaml:"logLevel"`
	DatabaseURL         string   `yaml:"databaseURL"`
	RedisAddr           string   `yaml:"redisAddr"`
	RedisPassword       string   `yaml:"redisPassword"`
	AuthServiceURL      string   `yaml:"authServiceURL"`
	RelayURL            string   `yaml:"relayURL"`
	RelayKey            string   `yaml:"relayKey"`
	RelayTimeout        string   `yaml:"relayTimeout"`
	BillingURL          string   `yaml:"billingURL"`
	BillingKey          string   `yaml:"billingKey"`
	ServiceTokenKey     string   `yaml:"serviceTokenPrivateKeyPath"`
	MinioEndpoint       string   `yaml:"minioEndpoint"`
	MinioAccessKey      string   `yaml:"minioAccessKey"`
	MinioSecretKey      string   `yaml:"minioSecretKey"`
	MinioBucket         string   `yaml:"minioBucket"`
	MinioUseSSL         bool     `yaml:"minioUseSSL"`
	MinioPublicBaseURL  string   `yaml:"minioPublicBaseURL"`
	WizardTTL           string   `yaml:"wizardTTL"`
	ParallelCalibration bool     `yaml:"parallelCalibration"`
	AllowTestMode       bool     `yaml:"allowTestMode"`
	CORSOrigins         []string `yaml:"corsOrigins"`
	TrustedProxyCIDRs   []string `yaml:"trustedProxyCidrs"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
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
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("AUTH_SERVICE_URL"); v != "" {
		cfg.AuthServiceURL = v
	}
	if v := os.Getenv("RELAY_URL"); v != "" {
		cfg.RelayURL = v
	}
	if v := os.Getenv("RELAY_KEY"); v != "" {
		cfg.RelayKey = v
	}
	if v := os.Getenv("BILLING_URL"); v != "" {
		cfg.BillingURL = v
	}
	if v := os.Getenv("BILLING_KEY"); v != "" {
		cfg.BillingKey = v
	}
	if v := os.Getenv("SERVICE_TOKEN_PRIVATE_KEY_PATH"); v != "" {
		cfg.ServiceTokenKey = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_PUBLIC_BASE_URL"); v != "" {
		cfg.MinioPublicBaseURL = v
	}
	if v := os.Getenv("ALLOW_TEST_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AllowTestMode = b
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.AuthServiceURL) == "" {
		return errors.New("config: authServiceURL is required (set AUTH_SERVICE_URL)")
	}
	if strings.TrimSpace(cfg.RelayURL) == "" {
		return errors.New("config: relayURL is required (set RELAY_URL)")
	}
	if cfg.MinioEndpoint != "" && (cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "") {
		return errors.New("config: minioAccessKey, minioSecretKey and minioBucket are required when minioEndpoint is set")
	}
	// Object URLs are stored on records, so they must not expire.
	if cfg.MinioEndpoint != "" && strings.TrimSpace(cfg.MinioPublicBaseURL) == "" {
		return errors.New("config: minioPublicBaseURL is required when minioEndpoint is set (set MINIO_PUBLIC_BASE_URL)")
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseRelayTimeout parses the per-call relay timeout; empty means 120s.
func ParseRelayTimeout(raw string) (time.Duration, error) {
	return parseDuration(raw, "relayTimeout", 120*time.Second)
}

// ParseWizardTTL parses how long an idle onboarding draft is kept; empty means 7 days.
func ParseWizardTTL(raw string) (time.Duration, error) {
	return parseDuration(raw, "wizardTTL", 7*24*time.Hour)
}

func parseDuration(raw, name string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", name, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("invalid %s duration: must be positive", name)
	}
	return dur, nil
}
