package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("Croissant#2024")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected a bcrypt hash, got %q", hash)
	}
	if !CheckPassword("Croissant#2024", hash) {
		t.Fatal("correct password rejected")
	}
	if CheckPassword("croissant#2024", hash) {
		t.Fatal("password check must be case sensitive")
	}
	if CheckPassword("Croissant#2024", "") {
		t.Fatal("empty stored hash must never match")
	}
}

func TestValidatePasswordPolicy(t *testing.T) {
	cases := []struct {
		password string
		reason   string
	}{
		{"Baguette#42", ""},
		{"Épicerie#2024", ""},
		{"Ba#4", "at least"},
		{strings.Repeat("Aa1!", 19), "at most"},
		{"baguette#42", "uppercase"},
		{"BAGUETTE#42", "lowercase"},
		{"Baguette#xx", "digit"},
		{"Baguette4242", "special"},
	}
	for _, tc := range cases {
		err := ValidatePassword(tc.password)
		if tc.reason == "" {
			if err != nil {
				t.Errorf("%q: unexpected error %v", tc.password, err)
			}
			continue
		}
		if !errors.Is(err, ErrWeakPassword) || !strings.Contains(err.Error(), tc.reason) {
			t.Errorf("%q: expected weak password (%s), got %v", tc.password, tc.reason, err)
		}
	}
}
