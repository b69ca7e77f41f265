// Package mail delivers single messages through a provider's transport.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

var (
	// ErrUnknownService is returned when a provider names a service no transport handles
	ErrUnknownService = errors.New("unknown email service")
	// ErrMissingSetting is returned when a provider lacks a field its transport needs
	ErrMissingSetting = errors.New("provider setting missing")
)

// Transport sends one message. Implementations must be safe to call
// sequentially; the dispatcher never calls Send concurrently on one instance.
type Transport interface {
	Send(ctx context.Context, msg *Message) (*SendResult, error)
	Name() string
}

// Message is a single outbound email
type Message struct {
	From    string // display form, e.g. "Acme <news@acme.test>"
	To      string
	Subject string
	HTML    string
	Text    string
}

// SendResult is what the provider acknowledged
type SendResult struct {
	MessageID string
}

// Factory builds a transport for a resolved provider. A returned error
// means the transport could not be established at all.
type Factory func(ctx context.Context, p *model.Provider) (Transport, error)

// NewTransport picks the transport for p.Service
func NewTransport(ctx context.Context, p *model.Provider) (Transport, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: provider", ErrMissingSetting)
	}

	switch strings.ToLower(p.Service) {
	case "ses":
		return asTransport(NewSESTransport(ctx, p))
	case "sendgrid":
		return asTransport(NewSendGridTransport(p))
	case "mailgun":
		return asTransport(NewMailgunTransport(p))
	case "resend":
		return asTransport(NewResendTransport(p))
	case "gmail-api":
		return asTransport(NewGmailTransport(ctx, p))
	default:
		return asTransport(NewSMTPTransport(p))
	}
}

// asTransport keeps a typed nil from leaking out as a non-nil interface
func asTransport[T Transport](t T, err error) (Transport, error) {
	if err != nil {
		return nil, err
	}
	return t, nil
}
