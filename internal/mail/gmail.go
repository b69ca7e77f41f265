package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

// GmailTransport sends through the Gmail API using a service account with
// domain-wide delegation. Password holds the credentials JSON and User the
// mailbox to impersonate.
type GmailTransport struct {
	service *gmail.Service
	mailbox string
	now     func() time.Time
}

// NewGmailTransport builds a Gmail API client impersonating p.User
func NewGmailTransport(ctx context.Context, p *model.Provider) (*GmailTransport, error) {
	if p.Password == "" {
		return nil, fmt.Errorf("%w: credentials JSON is required for gmail-api", ErrMissingSetting)
	}
	if p.User == "" {
		return nil, fmt.Errorf("%w: mailbox (user) is required for gmail-api", ErrMissingSetting)
	}

	jwtConfig, err := google.JWTConfigFromJSON([]byte(p.Password), gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("gmail: failed to parse credentials: %w", err)
	}
	jwtConfig.Subject = p.User

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("gmail: failed to create service: %w", err)
	}

	return &GmailTransport{service: svc, mailbox: p.User, now: time.Now}, nil
}

// Name returns the transport name
func (t *GmailTransport) Name() string {
	return "gmail-api"
}

// Send uploads msg as a raw RFC 5322 message
func (t *GmailTransport) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	raw := buildMIME(msg, newMessageID(msg.From), t.now())

	sent, err := t.service.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail: failed to send email: %w", err)
	}

	return &SendResult{MessageID: sent.Id}, nil
}
