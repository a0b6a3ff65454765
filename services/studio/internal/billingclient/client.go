package billingclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// KeyHeader carries the shared service secret.
const KeyHeader = "X-Relay-Key"

// Client calls the payment relay over HTTP.
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

// APIError represents a payment relay error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// CheckoutRequest is the payload for a hosted checkout session.
type CheckoutRequest struct {
	UserID    string  `json:"userId"`
	Email     string  `json:"email"`
	PriceType string  `json:"priceType"`
	PromoCode *string `json:"promoCode"`
}

// NewClient constructs a payment relay client.
func NewClient(baseURL, key string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateCheckoutSession returns the hosted checkout URL. Transport failures
// are returned as plain errors; relay rejections as *APIError.
func (c *Client) CreateCheckoutSession(ctx context.Context, in CheckoutRequest) (string, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/create-checkout-session", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set(KeyHeader, c.key)
	}
	if c.tokens != nil {
		token, err := c.tokens.Sign("billing")
		if err != nil {
			return "", fmt.Errorf("sign service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var out struct {
		URL   string `json:"url"`
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode >= 400 || out.URL == "" {
		msg := out.Error
		if msg == "" {
			msg = resp.Status
		}
		status := resp.StatusCode
		if status < 400 {
			status = http.StatusBadGateway
		}
		return "", &APIError{Status: status, Message: msg}
	}
	return out.URL, nil
}
