package ai

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without usable output.
var ErrEmptyResponse = errors.New("empty response from provider")

// Image is a generated picture.
type Image struct {
	Data     []byte
	MIMEType string
}

// TextGenerator generates text from a system prompt and user prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ImageGenerator generates a single image from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (Image, error)
}
