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

const (
	ProviderGemini       = "gemini"
	ProviderOpenAICompat = "openai-compat"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                string   `yaml:"port"`
	LogLevel            string   `yaml:"logLevel"`
	Provider            string   `yaml:"provider"`
	GeminiAPIKey        string   `yaml:"geminiApiKey"`
	GeminiTextModel     string   `yaml:"geminiTextModel"`
	GeminiImageModel    string   `yaml:"geminiImageModel"`
	OpenAIBaseURL       string   `yaml:"openaiBaseURL"`
	OpenAIAPIKey        string   `yaml:"openaiApiKey"`
	OpenAITextModel     string   `yaml:"openaiTextModel"`
	OpenAIImageModel    string   `yaml:"openaiImageModel"`
	OpenAIImageSize     string   `yaml:"openaiImageSize"`
	RequestTimeout      string   `yaml:"requestTimeout"`
	RelayKey            string   `yaml:"relayKey"`
	ServiceTokenKey     string   `yaml:"serviceTokenPublicKeyPath"`
	ServiceTokenIssuers []string `yaml:"serviceTokenIssuers"`
	RedisAddr           string   `yaml:"redisAddr"`
	RedisPassword       string   `yaml:"redisPassword"`
	RateLimitPerMinute  int      `yaml:"rateLimitPerMinute"`
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
	if v := os.Getenv("RELAY_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("RELAY_KEY"); v != "" {
		cfg.RelayKey = v
	}
	if v := os.Getenv("SERVICE_TOKEN_PUBLIC_KEY_PATH"); v != "" {
		cfg.ServiceTokenKey = v
	}
	if v := os.Getenv("SERVICE_TOKEN_ISSUERS"); v != "" {
		cfg.ServiceTokenIssuers = splitCSV(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("RELAY_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if cfg.ServiceTokenKey != "" && len(cfg.ServiceTokenIssuers) == 0 {
		cfg.ServiceTokenIssuers = []string{"studio"}
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = ProviderGemini
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
	switch cfg.Provider {
	case ProviderGemini:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return errors.New("config: geminiApiKey is required for provider gemini (set GEMINI_API_KEY)")
		}
		if cfg.GeminiTextModel == "" || cfg.GeminiImageModel == "" {
			return errors.New("config: geminiTextModel and geminiImageModel are required (set in config.yaml)")
		}
	case ProviderOpenAICompat:
		if strings.TrimSpace(cfg.OpenAIBaseURL) == "" {
			return errors.New("config: openaiBaseURL is required for provider openai-compat (set OPENAI_BASE_URL)")
		}
		if cfg.OpenAITextModel == "" || cfg.OpenAIImageModel == "" {
			return errors.New("config: openaiTextModel and openaiImageModel are required (set in config.yaml)")
		}
	default:
		return fmt.Errorf("config: unknown provider %q (use gemini or openai-compat)", cfg.Provider)
	}
	if cfg.RateLimitPerMinute < 0 {
		return errors.New("config: rateLimitPerMinute must be >= 0")
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

// ParseRequestTimeout parses the per-call provider timeout; empty means 90s.
func ParseRequestTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 90 * time.Second, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid requestTimeout duration: %w", err)
	}
	return dur, nil
}
