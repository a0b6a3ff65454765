package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file, relative to the working directory.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                string            `yaml:"port"`
	LogLevel            string            `yaml:"logLevel"`
	DatabaseURL         string            `yaml:"databaseURL"`
	StripeSecretKey     string            `yaml:"stripeSecretKey"`
	StripeWebhookSecret string            `yaml:"stripeWebhookSecret"`
	PriceMonthly        string            `yaml:"stripePriceMonthly"`
	PriceYearly         string            `yaml:"stripePriceYearly"`
	PromoCoupons        map[string]string `yaml:"promoCoupons"`
	SuccessURL          string            `yaml:"successURL"`
	CancelURL           string            `yaml:"cancelURL"`
	ServiceKey          string            `yaml:"serviceKey"`
	ServiceTokenKey     string            `yaml:"serviceTokenPublicKeyPath"`
	ServiceTokenIssuers []string          `yaml:"serviceTokenIssuers"`
	CORSOrigins         []string          `yaml:"corsOrigins"`
	TrustedProxyCIDRs   []string          `yaml:"trustedProxyCidrs"`
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
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		cfg.StripeSecretKey = v
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.StripeWebhookSecret = v
	}
	if v := os.Getenv("STRIPE_PRICE_MONTHLY"); v != "" {
		cfg.PriceMonthly = v
	}
	if v := os.Getenv("STRIPE_PRICE_YEARLY"); v != "" {
		cfg.PriceYearly = v
	}
	if v := os.Getenv("BILLING_SERVICE_KEY"); v != "" {
		cfg.ServiceKey = v
	}
	if v := os.Getenv("SERVICE_TOKEN_PUBLIC_KEY_PATH"); v != "" {
		cfg.ServiceTokenKey = v
	}
	if v := os.Getenv("SERVICE_TOKEN_ISSUERS"); v != "" {
		cfg.ServiceTokenIssuers = splitCSV(v)
	}
	if cfg.ServiceTokenKey != "" && len(cfg.ServiceTokenIssuers) == 0 {
		cfg.ServiceTokenIssuers = []string{"studio"}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	// Promo codes are matched upper-case.
	coupons := make(map[string]string, len(cfg.PromoCoupons))
	for code, coupon := range cfg.PromoCoupons {
		coupons[strings.ToUpper(strings.TrimSpace(code))] = strings.TrimSpace(coupon)
	}
	cfg.PromoCoupons = coupons
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.StripeSecretKey) == "" {
		return errors.New("config: stripeSecretKey is required (set STRIPE_SECRET_KEY)")
	}
	if strings.TrimSpace(cfg.StripeWebhookSecret) == "" {
		return errors.New("config: stripeWebhookSecret is required (set STRIPE_WEBHOOK_SECRET)")
	}
	if cfg.PriceMonthly == "" || cfg.PriceYearly == "" {
		return errors.New("config: stripePriceMonthly and stripePriceYearly are required (set in config.yaml)")
	}
	if cfg.SuccessURL == "" || cfg.CancelURL == "" {
		return errors.New("config: successURL and cancelURL are required (set in config.yaml)")
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
