package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"ainastudio/internal/ratelimit"
	"ainastudio/internal/util"
	"ainastudio/services/auth/internal/app"
	"ainastudio/services/auth/internal/config"
	"ainastudio/services/auth/internal/security"
	"ainastudio/services/auth/internal/server"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		util.Fatal("failed to load config", "err", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		util.Fatal("invalid trustedProxyCidrs", "err", err)
	}

	var redisClient redis.UniversalClient
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
	} else {
		logger.Warn("redisAddr empty: token revocation is in-process and rate limiting is disabled")
	}

	appCore, err := app.New(app.Config{
		DatabaseURL: cfg.DatabaseURL,
		Redis:       redisClient,
		SessionTTL:  cfg.SessionTTLDuration,
		JWTSecret:   cfg.JWTSecret,
		JWTIssuer:   cfg.JWTIssuer,
		JWTAudience: cfg.JWTAudience,
		JWTLeeway:   cfg.JWTLeewayDuration,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer := server.New(server.Config{
		App:            appCore,
		SignupLimiter:  newLimiter(redisClient, "aina:auth:signup", cfg.SignupRateLimitPerMinute),
		LoginLimiter:   newLimiter(redisClient, "aina:auth:login", cfg.LoginRateLimitPerMinute),
		Alerter:        security.NewAuditAlerter(redisClient, "aina:auth:alerts"),
		TrustedProxies: trusted,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      util.Wrap("auth", cfg.CORSOrigins, trusted, httpServer.Router()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("auth server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func newLimiter(client redis.UniversalClient, prefix string, perMinute int) *ratelimit.FixedWindowLimiter {
	if client == nil || perMinute <= 0 {
		return nil
	}
	limiter, err := ratelimit.NewFixedWindowLimiter(client, ratelimit.Config{
		Prefix:   prefix,
		Limit:    perMinute,
		Window:   time.Minute,
		FailOpen: true,
	})
	if err != nil {
		util.Fatal("failed to init rate limiter", "prefix", prefix, "err", err)
	}
	return limiter
}
