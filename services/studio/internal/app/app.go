package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ainastudio/internal/metrics"
	"ainastudio/pkg/onboarding"
	"ainastudio/pkg/storage"
	"ainastudio/pkg/store"
	"ainastudio/services/studio/internal/billingclient"
)

// TextGenerator produces plain text for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// CheckoutCreator opens a hosted checkout session and returns its URL.
type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, in billingclient.CheckoutRequest) (string, error)
}

// Config holds runtime configuration for the studio app.
type Config struct {
	DatabaseURL string
	Store       store.Store
	Wizards     store.WizardStore
	Uploader    *storage.ImageUploader
	Images      onboarding.ImageGenerator
	Text        TextGenerator
	Checkout    CheckoutCreator
	// ParallelCalibration issues the four style requests at once.
	ParallelCalibration bool
	RoundTimeout        time.Duration
	AllowTestMode       bool
	Metrics             *metrics.Metrics
	Logger              *slog.Logger
}

// App is the core studio application service.
type App struct {
	store         store.Store
	wizards       store.WizardStore
	uploader      *storage.ImageUploader
	images        onboarding.ImageGenerator
	text          TextGenerator
	checkout      CheckoutCreator
	parallel      bool
	roundTimeout  time.Duration
	allowTestMode bool
	metrics       *metrics.Metrics
	logger        *slog.Logger

	locks sync.Map // userID -> *sync.Mutex

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs the app.
func New(cfg Config) (*App, error) {
	if cfg.Images == nil {
		return nil, errors.New("image generator is required")
	}
	if cfg.Text == nil {
		return nil, errors.New("text generator is required")
	}
	dataStore := cfg.Store
	if dataStore == nil {
		if strings.TrimSpace(cfg.DatabaseURL) != "" {
			gs, err := store.NewGormStore(cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("init postgres store: %w", err)
			}
			dataStore = gs
		} else {
			dataStore = store.NewMemoryStore()
		}
	}
	wizards := cfg.Wizards
	if wizards == nil {
		wizards = store.NewMemoryWizardStore(7 * 24 * time.Hour)
	}
	uploader := cfg.Uploader
	if uploader == nil {
		uploader = storage.NewImageUploader(nil)
	}
	roundTimeout := cfg.RoundTimeout
	if roundTimeout <= 0 {
		roundTimeout = 5 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		store:         dataStore,
		wizards:       wizards,
		uploader:      uploader,
		images:        cfg.Images,
		text:          cfg.Text,
		checkout:      cfg.Checkout,
		parallel:      cfg.ParallelCalibration,
		roundTimeout:  roundTimeout,
		allowTestMode: cfg.AllowTestMode,
		metrics:       cfg.Metrics,
		logger:        logger,
		baseCtx:       ctx,
		cancel:        cancel,
	}, nil
}

// Close cancels running calibration rounds and waits for them to settle.
func (a *App) Close() {
	a.cancel()
	a.wg.Wait()
}

// lock serialises wizard operations for one user.
func (a *App) lock(userID string) func() {
	v, _ := a.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
