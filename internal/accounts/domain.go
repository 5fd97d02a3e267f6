package accounts

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an account.
type Status string

const (
	// StatusPending marks an account registered but not yet activated.
	StatusPending Status = "P"
	// StatusActive marks a confirmed account. It is terminal.
	StatusActive Status = "A"
)

const (
	// ActivationTimeout bounds how long an activation key stays valid after
	// the last registration or renewal.
	ActivationTimeout = 60 * time.Second
	// ActivationKeyLength is the number of decimal digits in an activation key.
	ActivationKeyLength = 4
)

// Account is a registered email address and its activation state.
type Account struct {
	ID            uuid.UUID
	Email         string
	PasswordHash  string
	Status        Status
	ActivationKey string
	RegisteredAt  time.Time
}

// IsActive reports whether the account reached its terminal state.
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// Expired reports whether the activation window has closed at now.
func (a *Account) Expired(now time.Time) bool {
	return now.Sub(a.RegisteredAt) > ActivationTimeout
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Email    string
	Password string
}

// RegisterResult is the outcome of a successful registration. Every success
// path yields the same value.
type RegisterResult string

// Accepted is returned for new, renewed and already active registrations alike.
const Accepted RegisterResult = "Accepted"

// ActivateInput carries an activation request.
type ActivateInput struct {
	Email          string
	Password       string
	ActivationCode string
}

// ActivateResult is the outcome of a successful activation.
type ActivateResult string

const (
	// Activated means the account moved from Pending to Active.
	Activated ActivateResult = "Activated"
	// AlreadyActive means the account was active before the call.
	AlreadyActive ActivateResult = "AlreadyActive"
)
