package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/souvikree/notifly-backend/pkg/enums"
)

// Message is the channel-agnostic delivery payload handed to a provider.
type Message struct {
	TenantID      string
	RequestID     uuid.UUID
	EventType     string
	UserID        string
	Recipient     string
	Payload       json.RawMessage
	CorrelationID string
}

// Provider sends a notification over one channel. Send must respect the
// context deadline; the caller enforces the provider timeout.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// TerminalError marks a failure that retrying cannot fix, such as a
// malformed recipient or a permanent provider rejection.
type TerminalError struct {
	Reason string
	Err    error
}

func (e *TerminalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// Terminal wraps err as a non-retryable failure.
func Terminal(reason string, err error) error {
	return &TerminalError{Reason: reason, Err: err}
}

// IsTerminal reports whether err carries a TerminalError anywhere in its chain.
func IsTerminal(err error) bool {
	var terminal *TerminalError
	return errors.As(err, &terminal)
}

// Registry maps channels to their providers.
type Registry map[enums.Channel]Provider

// Get returns the provider for a channel.
func (r Registry) Get(channel enums.Channel) (Provider, bool) {
	p, ok := r[channel]
	return p, ok
}
