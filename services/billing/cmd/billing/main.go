package main

import (
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"ainastudio/internal/servicetoken"
	"ainastudio/internal/util"
	"ainastudio/pkg/domain"
	"ainastudio/services/billing/internal/app"
	"ainastudio/services/billing/internal/config"
	"ainastudio/services/billing/internal/server"
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

	appCore, err := app.New(app.Config{
		DatabaseURL:   cfg.DatabaseURL,
		Provider:      app.NewStripeProvider(cfg.StripeSecretKey),
		WebhookSecret: cfg.StripeWebhookSecret,
		Prices: map[domain.Plan]string{
			domain.PlanMonthly: cfg.PriceMonthly,
			domain.PlanYearly:  cfg.PriceYearly,
		},
		Coupons:    cfg.PromoCoupons,
		SuccessURL: cfg.SuccessURL,
		CancelURL:  cfg.CancelURL,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	var verifier *servicetoken.Verifier
	if cfg.ServiceTokenKey != "" {
		verifier, err = servicetoken.NewVerifier("billing", cfg.ServiceTokenIssuers, cfg.ServiceTokenKey)
		if err != nil {
			util.Fatal("failed to init service token verifier", "err", err)
		}
	}

	httpServer := server.New(server.Config{
		App:            appCore,
		ServiceKey:     cfg.ServiceKey,
		ServiceTokens:  verifier,
		TrustedProxies: trusted,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      util.Wrap("billing", cfg.CORSOrigins, trusted, httpServer.Router()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("billing server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
