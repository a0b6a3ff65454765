package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig selects models for the Gemini API.
type GeminiConfig struct {
	APIKey     string
	TextModel  string
	ImageModel string
	// BaseURL overrides the API endpoint (proxies, tests).
	BaseURL string
}

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	client     *genai.Client
	textModel  string
	imageModel string
}

// NewGeminiClient constructs a client with the provided API key.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &GeminiClient{
		client:     client,
		textModel:  normalizeModel(cfg.TextModel),
		imageModel: normalizeModel(cfg.ImageModel),
	}, nil
}

// GenerateText implements TextGenerator.
func (c *GeminiClient) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if strings.TrimSpace(systemPrompt) != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		}
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.textModel, genai.Text(userPrompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate text: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// GenerateImage implements ImageGenerator using an image-capable model.
func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.imageModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage), string(genai.ModalityText)},
	})
	if err != nil {
		return Image{}, fmt.Errorf("gemini generate image: %w", err)
	}
	return imageFromResponse(resp)
}

// imageFromResponse returns the first inline image of the first candidate.
func imageFromResponse(resp *genai.GenerateContentResponse) (Image, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return Image{}, ErrEmptyResponse
	}
	cand := resp.Candidates[0]
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				return Image{Data: part.InlineData.Data, MIMEType: mime}, nil
			}
		}
	}
	if cand.FinishReason != genai.FinishReasonUnspecified && cand.FinishReason != genai.FinishReasonStop {
		return Image{}, fmt.Errorf("image generation stopped: %s", cand.FinishReason)
	}
	return Image{}, ErrEmptyResponse
}

func normalizeModel(model string) string {
	return strings.TrimPrefix(strings.TrimSpace(model), "models/")
}
