package domain

import "errors"

// Auth service errors.
var (
	// ErrInvalidCredentials covers both unknown email and wrong password so the
	// response never reveals which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrValidation         = errors.New("validation failed")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

// Client session errors.
var (
	ErrSessionLoading   = errors.New("session is still loading")
	ErrAlreadyRestored  = errors.New("session already restored")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrEmptyToken       = errors.New("empty token")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNoSession        = errors.New("no persisted session")
)
