// Package mail delivers activation codes to users.
package mail

import (
	"context"
	"errors"
)

// DefaultFrom is the sender address used when none is configured.
const DefaultFrom = "noreply@registration-demo.io"

// ErrInvalidResponse indicates the mail service answered with a non-success status.
var ErrInvalidResponse = errors.New("mail: invalid response")

// Message is the payload accepted by the mail service.
type Message struct {
	To   string `json:"to"`
	From string `json:"from"`
	Body string `json:"body"`
}

// Sender hands a message to a delivery channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
