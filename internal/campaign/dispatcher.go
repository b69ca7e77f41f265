// Package campaign runs bulk sends: one campaign, one provider, recipients in order.
package campaign

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/osteele/liquid"
	"github.com/yuin/goldmark"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/LUCIFER14144/email-marketing-platform/internal/ledger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/logger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/mail"
	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
	"github.com/LUCIFER14144/email-marketing-platform/internal/provider"
	"github.com/LUCIFER14144/email-marketing-platform/internal/tracking"
)

var (
	ErrInvalidRequest       = errors.New("invalid campaign request")
	ErrTransportUnavailable = errors.New("email transport unavailable")
	ErrInvalidAddress       = errors.New("invalid email address")
)

// Request describes one campaign run
type Request struct {
	UserID          string
	ProviderID      string
	From            string // display name; empty sends as the bare provider address
	Subject         string
	Message         string
	Format          string // html (default) or markdown
	Recipients      []model.Recipient
	TrackingEnabled bool
}

// Outcome is the final state of a run plus every recipient's result in list order
type Outcome struct {
	Campaign model.CampaignStats
	Results  []model.RecipientResult
}

// Dispatcher executes campaign runs against the ledger
type Dispatcher struct {
	ledger       *ledger.Ledger
	registry     *provider.Registry
	rewriter     *tracking.Rewriter
	newTransport mail.Factory
	pacer        Pacer
	engine       *liquid.Engine
	markdown     goldmark.Markdown
	tracer       trace.Tracer
	log          *logger.Logger
	newID        func() string
}

// NewDispatcher creates a Dispatcher. A nil factory uses mail.NewTransport and a nil pacer
// waits DefaultSendInterval between sends.
func NewDispatcher(l *ledger.Ledger, registry *provider.Registry, rewriter *tracking.Rewriter, factory mail.Factory, pacer Pacer, log *logger.Logger) *Dispatcher {
	if factory == nil {
		factory = mail.NewTransport
	}
	if pacer == nil {
		pacer = NewFixedPacer(DefaultSendInterval)
	}
	return &Dispatcher{
		ledger:       l,
		registry:     registry,
		rewriter:     rewriter,
		newTransport: factory,
		pacer:        pacer,
		engine:       liquid.NewEngine(),
		markdown:     goldmark.New(),
		tracer:       otel.Tracer("github.com/LUCIFER14144/email-marketing-platform/internal/campaign"),
		log:          log.WithComponent("dispatcher"),
		newID:        uuid.NewString,
	}
}

// Validate checks a request without touching the ledger
func (d *Dispatcher) Validate(req *Request) (*model.Provider, error) {
	if len(req.Recipients) == 0 {
		return nil, fmt.Errorf("%w: email list is empty", ErrInvalidRequest)
	}
	if req.ProviderID == "" || req.Subject == "" || req.Message == "" {
		return nil, fmt.Errorf("%w: provider, subject and message are required", ErrInvalidRequest)
	}
	switch req.Format {
	case "", FormatHTML, FormatMarkdown:
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidRequest, req.Format)
	}
	return d.registry.Resolve(req.UserID, req.ProviderID)
}

// Run executes one campaign to completion. The caller's cancellation is not
// propagated to the sends: once the campaign exists it runs through the list.
func (d *Dispatcher) Run(ctx context.Context, req Request) (*Outcome, error) {
	p, err := d.Validate(&req)
	if err != nil {
		return nil, err
	}

	rend, err := newRenderer(d.engine, d.markdown, req.Message, req.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	campaignID := d.newID()
	if err := d.ledger.Create(model.Campaign{
		ID:          campaignID,
		Subject:     req.Subject,
		OwnerID:     req.UserID,
		ProviderID:  req.ProviderID,
		TotalEmails: len(req.Recipients),
	}); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	log := d.log.WithCampaign(campaignID, req.ProviderID)
	ctx = context.WithoutCancel(ctx)

	transport, err := d.newTransport(ctx, p)
	if err != nil {
		_ = d.ledger.MarkFailed(campaignID)
		log.Error().Err(err).Str("service", p.Service).Msg("failed to establish email transport")
		return nil, fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}

	log.Info().
		Int("recipients", len(req.Recipients)).
		Str("transport", transport.Name()).
		Bool("tracking", req.TrackingEnabled).
		Msg("campaign started")

	from := p.FromHeader(req.From)
	results := make([]model.RecipientResult, 0, len(req.Recipients))

	for i, rcpt := range req.Recipients {
		result := d.deliver(ctx, log, transport, rend, campaignID, from, &req, i, rcpt)
		results = append(results, result)

		if result.Status == model.DeliverySent {
			_ = d.ledger.IncrementSent(campaignID)
		} else {
			_ = d.ledger.IncrementFailed(campaignID)
		}

		if i < len(req.Recipients)-1 {
			d.pacer.Wait(ctx)
		}
	}

	if err := d.ledger.MarkCompleted(campaignID); err != nil {
		log.Warn().Err(err).Msg("failed to mark campaign completed")
	}

	stats, _ := d.ledger.Get(campaignID)
	log.Info().
		Int("sent", stats.SentCount).
		Int("failed", stats.FailedCount).
		Msg("campaign completed")

	return &Outcome{Campaign: stats, Results: results}, nil
}

// deliver makes the single send attempt for one recipient
func (d *Dispatcher) deliver(ctx context.Context, log *logger.Logger, transport mail.Transport, rend *renderer, campaignID, from string, req *Request, index int, rcpt model.Recipient) model.RecipientResult {
	ctx, span := d.tracer.Start(ctx, "campaign.send")
	defer span.End()

	span.SetAttributes(
		attribute.String("campaign.id", campaignID),
		attribute.String("provider.id", req.ProviderID),
		attribute.Int("recipient.index", index),
	)

	// Malformed entries keep their place in the list and count as failed
	if !rcpt.Valid() {
		err := fmt.Errorf("%w: %q", ErrInvalidAddress, rcpt.Email)
		span.SetStatus(codes.Error, "invalid address")
		log.Delivery(index, len(req.Recipients), rcpt.Email, "", err)
		return model.RecipientResult{Email: rcpt.Email, Status: model.DeliveryFailed, Error: err.Error()}
	}

	body := rend.HTML(rcpt)
	text := rend.Text(body)

	if req.TrackingEnabled {
		instrumented, err := d.rewriter.Instrument(campaignID, rcpt.Email, body)
		if err != nil {
			log.Warn().Err(err).Str("recipient", rcpt.Email).Msg("tracking disabled for recipient")
		} else {
			body = instrumented
		}
	}

	res, err := transport.Send(ctx, &mail.Message{
		From:    from,
		To:      rcpt.Email,
		Subject: req.Subject,
		HTML:    body,
		Text:    text,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		log.Delivery(index, len(req.Recipients), rcpt.Email, "", err)
		return model.RecipientResult{Email: rcpt.Email, Status: model.DeliveryFailed, Error: err.Error()}
	}

	messageID := "unknown"
	if res != nil && res.MessageID != "" {
		messageID = res.MessageID
	}
	span.SetStatus(codes.Ok, "email sent")
	log.Delivery(index, len(req.Recipients), rcpt.Email, messageID, nil)

	return model.RecipientResult{Email: rcpt.Email, Status: model.DeliverySent, MessageID: messageID}
}
