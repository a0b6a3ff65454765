package app

import "errors"

var (
	// ErrInvalidCredentials is shown to users for every failed login, whatever
	// the cause, so it cannot be used to probe for accounts.
	ErrInvalidCredentials = errors.New("Incorrect email address or password")
	// ErrUserDisabled stays server-side; handlers answer with ErrInvalidCredentials.
	ErrUserDisabled = errors.New("user disabled")

	ErrEmailAndPasswordRequired = errors.New("email and password required")
	ErrEmailAlreadyExists       = errors.New("email already exists")
	ErrCurrentPasswordRequired  = errors.New("current password required")
	ErrNewPasswordRequired      = errors.New("new password required")
	ErrPasswordUnchanged        = errors.New("new password must differ from current password")
	ErrUserNotFound             = errors.New("user not found")
)
