package accounts

import "errors"

// Request validation and business rule failures.
var (
	ErrInvalidRequest        = errors.New("invalid json")
	ErrInvalidEmail          = errors.New("invalid email")
	ErrInvalidPassword       = errors.New("invalid password: must be between 12 and 255 characters")
	ErrUnauthorized          = errors.New("invalid email or password")
	ErrInvalidActivationCode = errors.New("invalid activation code")
	ErrActivationExpired     = errors.New("activation code timed out, please register again")
)

// Store failures.
var (
	// ErrAccountNotFound indicates no account exists for the email.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists indicates an insert lost a race on the unique email.
	ErrAccountExists = errors.New("account already exists")
)
