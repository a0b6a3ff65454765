package auth

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 10
	// bcrypt only looks at the first 72 bytes; longer inputs are rejected upstream.
	maxPasswordLen = 72
)

// ErrWeakPassword is returned by ValidatePassword for rejected passwords.
var ErrWeakPassword = errors.New("weak password")

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword validates a password against a bcrypt hash.
func CheckPassword(password, stored string) bool {
	if stored == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// ValidatePassword enforces the account password policy.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("%w: must be at most %d bytes", ErrWeakPassword, maxPasswordLen)
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	switch {
	case !upper:
		return fmt.Errorf("%w: needs an uppercase letter", ErrWeakPassword)
	case !lower:
		return fmt.Errorf("%w: needs a lowercase letter", ErrWeakPassword)
	case !digit:
		return fmt.Errorf("%w: needs a digit", ErrWeakPassword)
	case !special:
		return fmt.Errorf("%w: needs a special character", ErrWeakPassword)
	}
	return nil
}
