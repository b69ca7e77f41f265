package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

const (
	defaultSMTPPort = 587
	implicitTLSPort = 465
	smtpSendTimeout = 60 * time.Second
)

type smtpEndpoint struct {
	host string
	port int
}

// wellKnownSMTP maps service names to their submission endpoints
var wellKnownSMTP = map[string]smtpEndpoint{
	"gmail":         {"smtp.gmail.com", 465},
	"outlook":       {"smtp-mail.outlook.com", 587},
	"hotmail":       {"smtp-mail.outlook.com", 587},
	"outlook365":    {"smtp.office365.com", 587},
	"yahoo":         {"smtp.mail.yahoo.com", 465},
	"zoho":          {"smtp.zoho.com", 465},
	"icloud":        {"smtp.mail.me.com", 587},
	"aol":           {"smtp.aol.com", 587},
	"sendgrid-smtp": {"smtp.sendgrid.net", 587},
	"mailgun-smtp":  {"smtp.mailgun.org", 465},
	"ses-smtp":      {"email-smtp.us-east-1.amazonaws.com", 465},
}

// SMTPTransport submits messages to an SMTP relay with PLAIN auth.
// Port 465 uses implicit TLS; other ports upgrade with STARTTLS when offered.
type SMTPTransport struct {
	host        string
	port        int
	user        string
	password    string
	implicitTLS bool
	dialer      *net.Dialer
	now         func() time.Time
}

// NewSMTPTransport builds an SMTP transport for a custom relay or a well-known service
func NewSMTPTransport(p *model.Provider) (*SMTPTransport, error) {
	var ep smtpEndpoint

	service := strings.ToLower(p.Service)
	if service == model.ServiceCustom {
		if p.Host == "" {
			return nil, fmt.Errorf("%w: host is required for custom SMTP", ErrMissingSetting)
		}
		ep = smtpEndpoint{host: p.Host, port: p.Port}
		if ep.port == 0 {
			ep.port = defaultSMTPPort
		}
	} else {
		known, ok := wellKnownSMTP[service]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownService, p.Service)
		}
		ep = known
	}

	if p.User == "" || p.Password == "" {
		return nil, fmt.Errorf("%w: user and password are required for SMTP", ErrMissingSetting)
	}

	return &SMTPTransport{
		host:        ep.host,
		port:        ep.port,
		user:        p.User,
		password:    p.Password,
		implicitTLS: ep.port == implicitTLSPort,
		dialer:      &net.Dialer{Timeout: 15 * time.Second},
		now:         time.Now,
	}, nil
}

// Name returns the transport name
func (t *SMTPTransport) Name() string {
	return "smtp"
}

// Addr returns host:port of the relay
func (t *SMTPTransport) Addr() string {
	return net.JoinHostPort(t.host, strconv.Itoa(t.port))
}

// Send submits msg over a fresh connection
func (t *SMTPTransport) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	from, err := envelopeAddress(msg.From)
	if err != nil {
		return nil, err
	}
	to, err := envelopeAddress(msg.To)
	if err != nil {
		return nil, err
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("smtp: connect %s: %w", t.Addr(), err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = t.now().Add(smtpSendTimeout)
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp: handshake: %w", err)
	}
	defer client.Close()

	if !t.implicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: t.host, MinVersion: tls.VersionTLS12}); err != nil {
				return nil, fmt.Errorf("smtp: starttls: %w", err)
			}
		}
	}
	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(smtp.PlainAuth("", t.user, t.password, t.host)); err != nil {
			return nil, fmt.Errorf("smtp: auth: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return nil, fmt.Errorf("smtp: MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return nil, fmt.Errorf("smtp: RCPT TO: %w", err)
	}

	messageID := newMessageID(msg.From)
	w, err := client.Data()
	if err != nil {
		return nil, fmt.Errorf("smtp: DATA: %w", err)
	}
	if _, err := w.Write(buildMIME(msg, messageID, t.now())); err != nil {
		w.Close()
		return nil, fmt.Errorf("smtp: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("smtp: end DATA: %w", err)
	}
	_ = client.Quit()

	return &SendResult{MessageID: messageID}, nil
}

func (t *SMTPTransport) dial(ctx context.Context) (net.Conn, error) {
	if t.implicitTLS {
		d := &tls.Dialer{
			NetDialer: t.dialer,
			Config:    &tls.Config{ServerName: t.host, MinVersion: tls.VersionTLS12},
		}
		return d.DialContext(ctx, "tcp", t.Addr())
	}
	return t.dialer.DialContext(ctx, "tcp", t.Addr())
}
