package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// KeyHeader carries the shared relay secret.
const KeyHeader = "X-Relay-Key"

// ErrEmptyResult is returned when the relay reports success without a payload.
var ErrEmptyResult = errors.New("relay returned an empty result")

// Client calls the AI relay over HTTP.
type Client struct {
	baseURL    string
	key        string
	tokens     TokenSource
	httpClient *http.Client
}

// TokenSource mints bearer tokens for a target audience.
type TokenSource interface {
	Sign(audience string) (string, error)
}

// WithTokenSource makes the client send a service token on every call.
func (c *Client) WithTokenSource(src TokenSource) *Client {
	c.tokens = src
	return c
}

// APIError represents a relay error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient constructs a relay client. timeout bounds one generation call.
func NewClient(baseURL, key string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GenerateImage returns the generated image as a data URL.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	var resp relayResponse
	if err := c.post(ctx, "/api/generate-image", prompt, &resp); err != nil {
		return "", err
	}
	if resp.Image == "" {
		return "", ErrEmptyResult
	}
	return resp.Image, nil
}

// GenerateText returns plain generated text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	var resp relayResponse
	if err := c.post(ctx, "/api/generate-text", prompt, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", ErrEmptyResult
	}
	return resp.Text, nil
}

func (c *Client) post(ctx context.Context, path, prompt string, out *relayResponse) error {
	data, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set(KeyHeader, c.key)
	}
	if c.tokens != nil {
		token, err := c.tokens.Sign("relay")
		if err != nil {
			return fmt.Errorf("sign service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	decodeErr := json.NewDecoder(resp.Body).Decode(out)
	if resp.StatusCode >= 400 || (decodeErr == nil && !out.Success) {
		msg := out.Error
		if msg == "" {
			msg = resp.Status
		}
		status := resp.StatusCode
		if status < 400 {
			status = http.StatusBadGateway
		}
		return &APIError{Status: status, Message: msg}
	}
	return decodeErr
}

type relayResponse struct {
	Success bool   `json:"success"`
	Image   string `json:"image"`
	Text    string `json:"text"`
	Error   string `json:"error"`
}
