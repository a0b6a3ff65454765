package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"ainastudio/internal/metrics"
	"ainastudio/internal/servicetoken"
	"ainastudio/internal/util"
	"ainastudio/pkg/storage"
	"ainastudio/pkg/store"
	"ainastudio/services/studio/internal/app"
	"ainastudio/services/studio/internal/authclient"
	"ainastudio/services/studio/internal/billingclient"
	"ainastudio/services/studio/internal/config"
	"ainastudio/services/studio/internal/relayclient"
	"ainastudio/services/studio/internal/server"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		util.Fatal("failed to load config", "err", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	relayTimeout, err := config.ParseRelayTimeout(cfg.RelayTimeout)
	if err != nil {
		util.Fatal("failed to parse relay timeout", "err", err)
	}
	wizardTTL, err := config.ParseWizardTTL(cfg.WizardTTL)
	if err != nil {
		util.Fatal("failed to parse wizard ttl", "err", err)
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		util.Fatal("invalid trustedProxyCidrs", "err", err)
	}

	var wizards store.WizardStore
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer client.Close()
		wizards = store.NewRedisWizardStore(client, "aina:studio:wizard", wizardTTL)
	} else {
		logger.Warn("redisAddr empty: onboarding drafts are kept in-process")
		wizards = store.NewMemoryWizardStore(wizardTTL)
	}

	var objects storage.ObjectStore
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		ms, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			Bucket:        cfg.MinioBucket,
			UseSSL:        cfg.MinioUseSSL,
			PublicBaseURL: cfg.MinioPublicBaseURL,
		})
		if err != nil {
			// Uploads degrade to inline data URLs.
			logger.Error("object storage unavailable", "endpoint", cfg.MinioEndpoint, "err", err)
		} else {
			objects = ms
		}
	} else {
		logger.Warn("minioEndpoint empty: uploads are embedded as data URLs")
	}

	var signer *servicetoken.Signer
	if cfg.ServiceTokenKey != "" {
		signer, err = servicetoken.NewSigner("studio", cfg.ServiceTokenKey, servicetoken.DefaultTTL)
		if err != nil {
			util.Fatal("failed to init service token signer", "err", err)
		}
	}

	var checkout app.CheckoutCreator
	if strings.TrimSpace(cfg.BillingURL) != "" {
		billing := billingclient.NewClient(cfg.BillingURL, cfg.BillingKey)
		if signer != nil {
			billing.WithTokenSource(signer)
		}
		checkout = billing
	} else {
		logger.Warn("billingURL empty: checkout reports payment_unavailable")
	}

	relay := relayclient.NewClient(cfg.RelayURL, cfg.RelayKey, relayTimeout)
	if signer != nil {
		relay.WithTokenSource(signer)
	}
	m := metrics.New("studio")
	appCore, err := app.New(app.Config{
		DatabaseURL:         cfg.DatabaseURL,
		Wizards:             wizards,
		Uploader:            storage.NewImageUploader(objects),
		Images:              relay,
		Text:                relay,
		Checkout:            checkout,
		ParallelCalibration: cfg.ParallelCalibration,
		RoundTimeout:        4*relayTimeout + 30*time.Second,
		AllowTestMode:       cfg.AllowTestMode,
		Metrics:             m,
		Logger:              logger,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer := server.New(server.Config{
		App:            appCore,
		Auth:           authclient.NewClient(cfg.AuthServiceURL),
		Metrics:        m,
		TrustedProxies: trusted,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      util.Wrap("studio", cfg.CORSOrigins, trusted, httpServer.Router()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2*relayTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("studio server listening", "addr", addr, "test_mode", cfg.AllowTestMode)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
	appCore.Close()
}
