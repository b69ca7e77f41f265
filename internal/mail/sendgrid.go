package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

// SendGridTransport sends through the SendGrid v3 API. Password holds the API key.
type SendGridTransport struct {
	client *sendgrid.Client
}

// NewSendGridTransport builds a SendGrid client
func NewSendGridTransport(p *model.Provider) (*SendGridTransport, error) {
	if p.Password == "" {
		return nil, fmt.Errorf("%w: api key is required for sendgrid", ErrMissingSetting)
	}
	return &SendGridTransport{client: sendgrid.NewSendClient(p.Password)}, nil
}

// Name returns the transport name
func (t *SendGridTransport) Name() string {
	return "sendgrid"
}

// Send sends msg as a single-recipient v3 mail
func (t *SendGridTransport) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	fromName, fromAddr, err := splitAddress(msg.From)
	if err != nil {
		return nil, err
	}
	toName, toAddr, err := splitAddress(msg.To)
	if err != nil {
		return nil, err
	}

	message := sgmail.NewSingleEmail(
		sgmail.NewEmail(fromName, fromAddr),
		msg.Subject,
		sgmail.NewEmail(toName, toAddr),
		msg.Text,
		msg.HTML,
	)

	resp, err := t.client.SendWithContext(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("sendgrid: send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("sendgrid: api error %d: %s", resp.StatusCode, resp.Body)
	}

	id := "unknown"
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		id = ids[0]
	}
	return &SendResult{MessageID: id}, nil
}
