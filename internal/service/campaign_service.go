package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/LUCIFER14144/email-marketing-platform/internal/campaign"
	"github.com/LUCIFER14144/email-marketing-platform/internal/config"
	"github.com/LUCIFER14144/email-marketing-platform/internal/ledger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/logger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/mail"
	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
	"github.com/LUCIFER14144/email-marketing-platform/internal/provider"
	"github.com/LUCIFER14144/email-marketing-platform/internal/recipients"
)

var (
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrTooManyCampaigns  = errors.New("too many campaigns running")
	ErrInvalidRecipient  = errors.New("invalid email address")
	ErrMissingSendFields = errors.New("all fields (to, subject, message) are required")
)

var singleRecipientRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CampaignService fronts the dispatcher for the API: it caps concurrent runs and
// owns provider uploads and single sends.
type CampaignService struct {
	dispatcher   *campaign.Dispatcher
	ledger       *ledger.Ledger
	registry     *provider.Registry
	newTransport mail.Factory
	running      *semaphore.Weighted
	log          *logger.Logger
}

// NewCampaignService creates a new CampaignService
func NewCampaignService(d *campaign.Dispatcher, l *ledger.Ledger, registry *provider.Registry, factory mail.Factory, cfg config.CampaignConfig, log *logger.Logger) *CampaignService {
	if factory == nil {
		factory = mail.NewTransport
	}
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	return &CampaignService{
		dispatcher:   d,
		ledger:       l,
		registry:     registry,
		newTransport: factory,
		running:      semaphore.NewWeighted(limit),
		log:          log.WithComponent("campaign_service"),
	}
}

// Send runs a bulk campaign, waiting for a free slot while ctx allows
func (s *CampaignService) Send(ctx context.Context, req campaign.Request) (*campaign.Outcome, error) {
	// Validate first so a bad request never waits for a slot
	if _, err := s.dispatcher.Validate(&req); err != nil {
		return nil, err
	}

	if err := s.running.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTooManyCampaigns, err)
	}
	defer s.running.Release(1)

	return s.dispatcher.Run(ctx, req)
}

// SingleSendRequest is a one-off message outside any campaign
type SingleSendRequest struct {
	UserID     string
	ProviderID string
	From       string
	To         string
	Subject    string
	Message    string
}

// SingleSendResult reports a one-off send
type SingleSendResult struct {
	MessageID string `json:"messageId"`
	Provider  string `json:"provider"`
}

// SendSingle sends one message with a "Sent via" footer. It is not tracked.
func (s *CampaignService) SendSingle(ctx context.Context, req SingleSendRequest) (*SingleSendResult, error) {
	if req.To == "" || req.Subject == "" || req.Message == "" {
		return nil, ErrMissingSendFields
	}
	if req.ProviderID == "" {
		return nil, fmt.Errorf("%w: email provider must be selected", campaign.ErrInvalidRequest)
	}
	if !singleRecipientRe.MatchString(req.To) {
		return nil, ErrInvalidRecipient
	}

	p, err := s.registry.Resolve(req.UserID, req.ProviderID)
	if err != nil {
		return nil, err
	}

	transport, err := s.newTransport(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", campaign.ErrTransportUnavailable, err)
	}

	label := p.Label
	if label == "" {
		label = p.ID
	}

	res, err := transport.Send(ctx, &mail.Message{
		From:    p.FromHeader(req.From),
		To:      req.To,
		Subject: req.Subject,
		Text:    req.Message,
		HTML:    withFooter(req.Message, label),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("provider_id", p.ID).Str("recipient", req.To).Msg("single send failed")
		return nil, fmt.Errorf("send failed: %w", err)
	}

	messageID := "unknown"
	if res != nil && res.MessageID != "" {
		messageID = res.MessageID
	}
	s.log.Info().Str("provider_id", p.ID).Str("message_id", messageID).Msg("single email sent")

	return &SingleSendResult{MessageID: messageID, Provider: label}, nil
}

func withFooter(message, label string) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; line-height: 1.6;">`)
	b.WriteString(message)
	b.WriteString(`<hr style="margin: 20px 0; border: none; border-top: 1px solid #eee;">`)
	b.WriteString(`<p style="font-size: 0.9em; color: #666;">Sent via: `)
	b.WriteString(html.EscapeString(label))
	b.WriteString(`</p></div>`)
	return b.String()
}

// Stats returns one campaign's counters and rates
func (s *CampaignService) Stats(campaignID string) (model.CampaignStats, error) {
	stats, ok := s.ledger.Get(campaignID)
	if !ok {
		return model.CampaignStats{}, ErrCampaignNotFound
	}
	return stats, nil
}

// Campaigns lists every campaign in start order
func (s *CampaignService) Campaigns() []model.CampaignStats {
	return s.ledger.List()
}

// Providers lists the providers visible to the user without credentials
func (s *CampaignService) Providers(userID string) []model.ProviderSummary {
	list := s.registry.List(userID)
	out := make([]model.ProviderSummary, 0, len(list))
	for i := range list {
		out = append(out, list[i].Summary())
	}
	return out
}

// UploadProviders parses a credentials file and merges it into the user's providers.
// It returns how many providers the file contained.
func (s *CampaignService) UploadProviders(userID, filename string, data []byte) (int, error) {
	parsed, err := provider.ParseFile(filename, data)
	if err != nil {
		return 0, err
	}
	s.registry.Upload(userID, parsed)
	s.log.AuditLog(userID, "providers.upload", "provider", filename, map[string]interface{}{
		"count": len(parsed),
	})
	return len(parsed), nil
}

// ParseRecipients parses an uploaded recipient list
func (s *CampaignService) ParseRecipients(filename string, data []byte) ([]model.Recipient, error) {
	return recipients.Parse(filename, data)
}
