package mail

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

// MailgunTransport sends through the Mailgun API.
// Provider fields: Host = sending domain, Password = API key.
type MailgunTransport struct {
	client mailgun.Mailgun
}

// NewMailgunTransport builds a Mailgun client for the provider's domain
func NewMailgunTransport(p *model.Provider) (*MailgunTransport, error) {
	if p.Host == "" || p.Password == "" {
		return nil, fmt.Errorf("%w: domain (host) and api key are required for mailgun", ErrMissingSetting)
	}
	return &MailgunTransport{client: mailgun.NewMailgun(p.Host, p.Password)}, nil
}

// Name returns the transport name
func (t *MailgunTransport) Name() string {
	return "mailgun"
}

// Send sends msg and returns Mailgun's queue id
func (t *MailgunTransport) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	m := mailgun.NewMessage(msg.From, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		m.SetHTML(msg.HTML)
	}

	_, id, err := t.client.Send(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("mailgun: send: %w", err)
	}
	return &SendResult{MessageID: id}, nil
}
