package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ainastudio/pkg/domain"
)

func TestMeReturnsUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		_ = json.NewEncoder(w).Encode(domain.User{ID: "u1", Email: "chef@bistrot.fr"})
	}))
	defer srv.Close()

	user, err := NewClient(srv.URL+"/").Me(context.Background(), "tok")
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("expected u1, got %q", user.ID)
	}
}

func TestMeErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"rejected token", http.StatusUnauthorized, `{"error":"unauthorized"}`, func(t *testing.T, err error) {
			if !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		}},
		{"server error", http.StatusInternalServerError, `{"error":"internal error"}`, func(t *testing.T, err error) {
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError || apiErr.Message != "internal error" {
				t.Fatalf("expected APIError 500, got %v", err)
			}
		}},
		{"empty user", http.StatusOK, `{}`, func(t *testing.T, err error) {
			if err == nil {
				t.Fatal("expected error for a user without id")
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			_, err := NewClient(srv.URL).Me(context.Background(), "bad")
			tc.check(t, err)
		})
	}
}
