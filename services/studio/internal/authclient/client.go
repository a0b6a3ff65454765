package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ainastudio/pkg/domain"
)

// ErrUnauthorized is returned when the account service rejects the token.
var ErrUnauthorized = errors.New("token rejected by account service")

// APIError is any other non-2xx answer from the account service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("account service: %d %s", e.Status, e.Message)
}

// Client resolves end-user tokens against the account service.
type Client struct {
	baseURL string
	hc      *http.Client
}

// NewClient constructs an account service client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 5 * time.Second},
	}
}

// Me returns the account behind token.
func (c *Client) Me(ctx context.Context, token string) (domain.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return domain.User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.hc.Do(req)
	if err != nil {
		return domain.User{}, fmt.Errorf("call account service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return domain.User{}, ErrUnauthorized
	case resp.StatusCode >= 300:
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4<<10)).Decode(&body)
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
		return domain.User{}, &APIError{Status: resp.StatusCode, Message: body.Error}
	}

	var user domain.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return domain.User{}, fmt.Errorf("decode account: %w", err)
	}
	if user.ID == "" {
		return domain.User{}, errors.New("account service returned no user id")
	}
	return user, nil
}
