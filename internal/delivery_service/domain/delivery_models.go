package domain

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"
)

// Message is one outbound greeting email. HTMLBody is optional.
type Message struct {
	To       string
	ToName   string
	Subject  string
	Body     string
	HTMLBody string
}

// SendReceipt is returned by a Sender once the provider accepted the message.
type SendReceipt struct {
	Provider          string    `json:"provider"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	AcceptedAt        time.Time `json:"accepted_at"`
}

// Sender is a delivery strategy (Gmail API, SMTP, mock).
type Sender interface {
	Send(ctx context.Context, msg Message) (*SendReceipt, error)
	GetName() string
}

// CredentialProvider hands out a currently valid OAuth2 access token, refreshing as needed.
type CredentialProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

var (
	ErrInvalidAddress    = errors.New("invalid recipient address")
	ErrUnknownProvider   = errors.New("unknown delivery provider")
	ErrCredentials       = errors.New("delivery credentials unavailable")
	ErrProviderRejected  = errors.New("delivery provider rejected message")
	ErrProviderTransport = errors.New("delivery provider unreachable")
)

// DeliveryError reports that a message was not handed off to the provider.
type DeliveryError struct {
	Provider string
	To       string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery via %s to %s failed: %v", e.Provider, e.To, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// ValidateRecipient checks that msg.To is a single bare email address.
func (msg Message) ValidateRecipient() error {
	addr, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidAddress, msg.To, err)
	}
	if addr.Address != msg.To {
		return fmt.Errorf("%w: %q is not a bare address", ErrInvalidAddress, msg.To)
	}
	return nil
}
