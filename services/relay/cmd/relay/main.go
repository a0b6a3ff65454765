package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"ainastudio/internal/metrics"
	"ainastudio/internal/ratelimit"
	"ainastudio/internal/servicetoken"
	"ainastudio/internal/util"
	"ainastudio/services/relay/internal/app"
	"ainastudio/services/relay/internal/config"
	"ainastudio/services/relay/internal/server"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		util.Fatal("failed to load config", "err", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	timeout, err := config.ParseRequestTimeout(cfg.RequestTimeout)
	if err != nil {
		util.Fatal("failed to parse request timeout", "err", err)
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		util.Fatal("invalid trustedProxyCidrs", "err", err)
	}

	text, image, err := app.NewProvider(context.Background(), app.ProviderConfig{
		Name:             cfg.Provider,
		GeminiAPIKey:     cfg.GeminiAPIKey,
		GeminiTextModel:  cfg.GeminiTextModel,
		GeminiImageModel: cfg.GeminiImageModel,
		OpenAIBaseURL:    cfg.OpenAIBaseURL,
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenAITextModel:  cfg.OpenAITextModel,
		OpenAIImageModel: cfg.OpenAIImageModel,
		OpenAIImageSize:  cfg.OpenAIImageSize,
		Timeout:          timeout,
	})
	if err != nil {
		util.Fatal("failed to init provider", "provider", cfg.Provider, "err", err)
	}

	m := metrics.New("relay")
	appCore, err := app.New(app.Config{
		Text:    text,
		Image:   image,
		Timeout: timeout,
		Metrics: m,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	var limiter *ratelimit.FixedWindowLimiter
	if strings.TrimSpace(cfg.RedisAddr) != "" && cfg.RateLimitPerMinute > 0 {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer client.Close()
		limiter, err = ratelimit.NewFixedWindowLimiter(client, ratelimit.Config{
			Prefix:   "aina:relay",
			Limit:    cfg.RateLimitPerMinute,
			Window:   time.Minute,
			FailOpen: true,
		})
		if err != nil {
			util.Fatal("failed to init rate limiter", "err", err)
		}
	}
	var verifier *servicetoken.Verifier
	if cfg.ServiceTokenKey != "" {
		verifier, err = servicetoken.NewVerifier("relay", cfg.ServiceTokenIssuers, cfg.ServiceTokenKey)
		if err != nil {
			util.Fatal("failed to init service token verifier", "err", err)
		}
	}
	if cfg.RelayKey == "" && verifier == nil {
		logger.Warn("relayKey empty: generation endpoints accept unauthenticated callers")
	}

	httpServer := server.New(server.Config{
		App:            appCore,
		RelayKey:       cfg.RelayKey,
		ServiceTokens:  verifier,
		Limiter:        limiter,
		Metrics:        m,
		TrustedProxies: trusted,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      util.Wrap("relay", cfg.CORSOrigins, trusted, httpServer.Router()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("relay server listening", "addr", addr, "provider", cfg.Provider)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
