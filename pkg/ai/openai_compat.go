package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAICompatConfig targets any OpenAI-compatible endpoint.
// BaseURL includes the /v1 prefix, e.g. "https://api.openai.com/v1".
type OpenAICompatConfig struct {
	BaseURL    string
	APIKey     string
	TextModel  string
	ImageModel string
	ImageSize  string
	Timeout    time.Duration
}

// OpenAICompatClient generates captions via /chat/completions and images via
// /images/generations.
type OpenAICompatClient struct {
	baseURL    string
	apiKey     string
	textModel  string
	imageModel string
	imageSize  string
	httpClient *http.Client
}

func NewOpenAICompatClient(cfg OpenAICompatConfig) *OpenAICompatClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	size := strings.TrimSpace(cfg.ImageSize)
	if size == "" {
		size = "1024x1024"
	}
	return &OpenAICompatClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		textModel:  strings.TrimSpace(cfg.TextModel),
		imageModel: strings.TrimSpace(cfg.ImageModel),
		imageSize:  size,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GenerateText implements TextGenerator.
func (c *OpenAICompatClient) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.textModel == "" {
		return "", fmt.Errorf("openai-compat text model required")
	}
	messages := make([]oaiMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, oaiMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, oaiMessage{Role: "user", Content: userPrompt})

	var out oaiChatResponse
	if err := c.post(ctx, "/chat/completions", oaiChatRequest{Model: c.textModel, Messages: messages}, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// GenerateImage implements ImageGenerator. The provider must return b64_json.
func (c *OpenAICompatClient) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	if c.imageModel == "" {
		return Image{}, fmt.Errorf("openai-compat image model required")
	}
	req := oaiImageRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		N:              1,
		Size:           c.imageSize,
		ResponseFormat: "b64_json",
	}
	var out oaiImageResponse
	if err := c.post(ctx, "/images/generations", req, &out); err != nil {
		return Image{}, err
	}
	if len(out.Data) == 0 || out.Data[0].B64JSON == "" {
		return Image{}, ErrEmptyResponse
	}
	data, err := base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	if err != nil {
		return Image{}, fmt.Errorf("openai-compat decode image: %w", err)
	}
	return Image{Data: data, MIMEType: http.DetectContentType(data)}, nil
}

func (c *OpenAICompatClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai-compat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp oaiErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&errResp)
		if errResp.Error.Message != "" {
			return fmt.Errorf("openai-compat api error: %s", errResp.Error.Message)
		}
		return fmt.Errorf("openai-compat api error: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("openai-compat decode: %w", err)
	}
	return nil
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiChatRequest struct {
	Model    string       `json:"model"`
	Messages []oaiMessage `json:"messages"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

type oaiImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type oaiImageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
