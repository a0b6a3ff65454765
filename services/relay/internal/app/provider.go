package app

import (
	"context"
	"fmt"
	"time"

	"ainastudio/pkg/ai"
)

// ProviderConfig selects and configures the upstream generation API.
type ProviderConfig struct {
	Name string // "gemini" or "openai-compat"

	GeminiAPIKey     string
	GeminiTextModel  string
	GeminiImageModel string

	OpenAIBaseURL    string
	OpenAIAPIKey     string
	OpenAITextModel  string
	OpenAIImageModel string
	OpenAIImageSize  string
	Timeout          time.Duration
}

// NewProvider builds the text and image generators for cfg.Name.
func NewProvider(ctx context.Context, cfg ProviderConfig) (ai.TextGenerator, ai.ImageGenerator, error) {
	switch cfg.Name {
	case "gemini":
		client, err := ai.NewGeminiClient(ctx, ai.GeminiConfig{
			APIKey:     cfg.GeminiAPIKey,
			TextModel:  cfg.GeminiTextModel,
			ImageModel: cfg.GeminiImageModel,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	case "openai-compat":
		client := ai.NewOpenAICompatClient(ai.OpenAICompatConfig{
			BaseURL:    cfg.OpenAIBaseURL,
			APIKey:     cfg.OpenAIAPIKey,
			TextModel:  cfg.OpenAITextModel,
			ImageModel: cfg.OpenAIImageModel,
			ImageSize:  cfg.OpenAIImageSize,
			Timeout:    cfg.Timeout,
		})
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
}
