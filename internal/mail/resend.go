package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

// ResendTransport sends through the Resend API. Password holds the API key.
type ResendTransport struct {
	client *resend.Client
}

// NewResendTransport builds a Resend client
func NewResendTransport(p *model.Provider) (*ResendTransport, error) {
	if p.Password == "" {
		return nil, fmt.Errorf("%w: api key is required for resend", ErrMissingSetting)
	}
	return &ResendTransport{client: resend.NewClient(p.Password)}, nil
}

// Name returns the transport name
func (t *ResendTransport) Name() string {
	return "resend"
}

// Send sends msg to a single recipient
func (t *ResendTransport) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	resp, err := t.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return nil, fmt.Errorf("resend: send: %w", err)
	}
	return &SendResult{MessageID: resp.Id}, nil
}
