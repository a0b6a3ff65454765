package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"ainastudio/internal/metrics"
	"ainastudio/internal/util"
	"ainastudio/pkg/ai"
	"ainastudio/pkg/storage"
)

// MaxPromptLength caps prompts in characters.
const MaxPromptLength = 4000

// Config holds runtime configuration for the relay.
type Config struct {
	Text    ai.TextGenerator
	Image   ai.ImageGenerator
	Timeout time.Duration
	Metrics *metrics.Metrics
}

// App forwards prompts to the configured provider.
type App struct {
	text    ai.TextGenerator
	image   ai.ImageGenerator
	timeout time.Duration
	metrics *metrics.Metrics
}

// New constructs the relay core.
func New(cfg Config) (*App, error) {
	if cfg.Text == nil || cfg.Image == nil {
		return nil, errors.New("text and image generators are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &App{
		text:    cfg.Text,
		image:   cfg.Image,
		timeout: cfg.Timeout,
		metrics: cfg.Metrics,
	}, nil
}

// GenerateImage returns the generated image as a data URL.
func (a *App) GenerateImage(ctx context.Context, prompt string) (string, error) {
	prompt, err := checkPrompt(prompt)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	img, err := a.image.GenerateImage(ctx, prompt)
	a.observe(ctx, "image", start, err)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProviderFailed, err)
	}
	return storage.DataURL(img.MIMEType, img.Data), nil
}

// GenerateText returns provider text with markup stripped.
func (a *App) GenerateText(ctx context.Context, prompt string) (string, error) {
	prompt, err := checkPrompt(prompt)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	text, err := a.text.GenerateText(ctx, "", prompt)
	if err == nil {
		text = util.StripHTML(text)
		if text == "" {
			err = ai.ErrEmptyResponse
		}
	}
	a.observe(ctx, "text", start, err)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProviderFailed, err)
	}
	return text, nil
}

func (a *App) observe(ctx context.Context, kind string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		util.LoggerFromContext(ctx).Warn("generation failed", "kind", kind, "err", err)
	}
	a.metrics.ObserveGeneration(kind, outcome, time.Since(start))
}

func checkPrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrPromptRequired
	}
	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		return "", ErrPromptTooLong
	}
	return prompt, nil
}
