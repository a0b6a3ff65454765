package app

import "errors"

var (
	ErrPromptRequired = errors.New("prompt is required")
	ErrPromptTooLong  = errors.New("prompt is too long")
	// ErrProviderFailed wraps any upstream generation failure.
	ErrProviderFailed = errors.New("generation failed")
)
