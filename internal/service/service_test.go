package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LUCIFER14144/email-marketing-platform/internal/auth"
	"github.com/LUCIFER14144/email-marketing-platform/internal/campaign"
	"github.com/LUCIFER14144/email-marketing-platform/internal/config"
	"github.com/LUCIFER14144/email-marketing-platform/internal/ledger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/logger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/mail"
	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
	"github.com/LUCIFER14144/email-marketing-platform/internal/provider"
	"github.com/LUCIFER14144/email-marketing-platform/internal/repository"
	"github.com/LUCIFER14144/email-marketing-platform/internal/tracking"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Security.Password.MinLength = 8
	cfg.Security.Password.Argon2Memory = 1024
	cfg.Security.Password.Argon2Iterations = 1
	cfg.Security.Password.Argon2Parallelism = 1
	cfg.Security.Tokens = config.TokenConfig{Secret: "test-secret", AccessTokenTTL: time.Hour, Issuer: "bulkmail"}
	cfg.Campaign = config.CampaignConfig{MaxResults: 50, MaxConcurrent: 1}
	return cfg
}

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	cfg := testConfig()
	tokens, err := auth.NewTokenService(cfg.Security.Tokens)
	require.NoError(t, err)
	return NewAuthService(repository.NewUserRepository(), tokens, cfg, logger.Nop())
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	session, err := svc.Register(ctx, Credentials{Username: "alice", Password: "sup3r-secret", IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", session.User.Username)
	assert.NotEmpty(t, session.Token.Token)

	user, err := svc.Authenticate(ctx, session.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, user.ID)

	_, err = svc.Register(ctx, Credentials{Username: "Alice", Password: "sup3r-secret"})
	assert.ErrorIs(t, err, ErrUsernameAlreadyExists)

	login, err := svc.Login(ctx, Credentials{Username: "alice", Password: "sup3r-secret", IPAddress: "10.0.0.2"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", login.User.IP)

	_, err = svc.Login(ctx, Credentials{Username: "alice", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, Credentials{Username: "nobody", Password: "whatever1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.Register(context.Background(), Credentials{Username: "a", Password: "sup3r-secret"})
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = svc.Register(context.Background(), Credentials{Username: "alice", Password: "short"})
	assert.ErrorIs(t, err, ErrPasswordTooWeak)
}

type stubTransport struct {
	sent []*mail.Message
	err  error
}

func (s *stubTransport) Name() string { return "stub" }

func (s *stubTransport) Send(_ context.Context, msg *mail.Message) (*mail.SendResult, error) {
	s.sent = append(s.sent, msg)
	if s.err != nil {
		return nil, s.err
	}
	return &mail.SendResult{MessageID: "<m1@acme.test>"}, nil
}

type noPacer struct{}

func (noPacer) Wait(context.Context) {}

func newCampaignService(t *testing.T, transport *stubTransport) *CampaignService {
	t.Helper()
	l := ledger.New()
	registry := provider.NewRegistry(map[string]model.Provider{
		"MAIN": {Service: "custom", User: "news@acme.test", Password: "pw", Host: "relay.local", Label: "Acme Relay"},
	})
	factory := func(context.Context, *model.Provider) (mail.Transport, error) { return transport, nil }
	d := campaign.NewDispatcher(l, registry, tracking.NewRewriter(l, "http://localhost:3000"), factory, noPacer{}, logger.Nop())
	return NewCampaignService(d, l, registry, factory, testConfig().Campaign, logger.Nop())
}

func TestSendSingle(t *testing.T) {
	transport := &stubTransport{}
	svc := newCampaignService(t, transport)

	res, err := svc.SendSingle(context.Background(), SingleSendRequest{
		UserID:     "alice",
		ProviderID: "MAIN",
		From:       "Acme",
		To:         "bob@example.com",
		Subject:    "Hello",
		Message:    "<p>Hi Bob</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "<m1@acme.test>", res.MessageID)
	assert.Equal(t, "Acme Relay", res.Provider)

	require.Len(t, transport.sent, 1)
	msg := transport.sent[0]
	assert.Equal(t, "Acme <news@acme.test>", msg.From)
	assert.Equal(t, "<p>Hi Bob</p>", msg.Text)
	assert.Contains(t, msg.HTML, "<p>Hi Bob</p>")
	assert.Contains(t, msg.HTML, "Sent via: Acme Relay")
	assert.Empty(t, svc.Campaigns())
}

func TestSendSingleValidation(t *testing.T) {
	svc := newCampaignService(t, &stubTransport{})
	ctx := context.Background()

	cases := []struct {
		name string
		req  SingleSendRequest
		want error
	}{
		{"missing fields", SingleSendRequest{ProviderID: "MAIN", To: "bob@example.com"}, ErrMissingSendFields},
		{"no provider", SingleSendRequest{To: "bob@example.com", Subject: "s", Message: "m"}, campaign.ErrInvalidRequest},
		{"bad address", SingleSendRequest{ProviderID: "MAIN", To: "bob@example", Subject: "s", Message: "m"}, ErrInvalidRecipient},
		{"unknown provider", SingleSendRequest{ProviderID: "NOPE", To: "bob@example.com", Subject: "s", Message: "m"}, provider.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SendSingle(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSendSingleTransportError(t *testing.T) {
	svc := newCampaignService(t, &stubTransport{err: errors.New("550 rejected")})
	_, err := svc.SendSingle(context.Background(), SingleSendRequest{
		ProviderID: "MAIN", To: "bob@example.com", Subject: "s", Message: "m",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "550 rejected")
}

func TestSendRunsCampaignAndStats(t *testing.T) {
	svc := newCampaignService(t, &stubTransport{})

	out, err := svc.Send(context.Background(), campaign.Request{
		UserID:     "alice",
		ProviderID: "MAIN",
		Subject:    "News",
		Message:    "<p>hi</p>",
		Recipients: []model.Recipient{{Email: "a@x.io"}, {Email: "b@x.io"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Campaign.SentCount)

	stats, err := svc.Stats(out.Campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusCompleted, stats.Status)
	assert.Len(t, svc.Campaigns(), 1)

	_, err = svc.Stats("missing")
	assert.ErrorIs(t, err, ErrCampaignNotFound)
}

func TestSendWaitsForSlot(t *testing.T) {
	svc := newCampaignService(t, &stubTransport{})
	require.NoError(t, svc.running.Acquire(context.Background(), 1))
	defer svc.running.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Send(ctx, campaign.Request{
		ProviderID: "MAIN",
		Subject:    "News",
		Message:    "<p>hi</p>",
		Recipients: []model.Recipient{{Email: "a@x.io"}},
	})
	assert.ErrorIs(t, err, ErrTooManyCampaigns)
	assert.Empty(t, svc.Campaigns())
}

func TestSendValidatesBeforeWaiting(t *testing.T) {
	svc := newCampaignService(t, &stubTransport{})
	require.NoError(t, svc.running.Acquire(context.Background(), 1))
	defer svc.running.Release(1)

	_, err := svc.Send(context.Background(), campaign.Request{ProviderID: "MAIN"})
	assert.ErrorIs(t, err, campaign.ErrInvalidRequest)
}

func TestUploadProvidersAndList(t *testing.T) {
	svc := newCampaignService(t, &stubTransport{})

	n, err := svc.UploadProviders("alice", "smtp.txt", []byte("MINE|gmail|me@gmail.com|app-pass|My Gmail\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list := svc.Providers("alice")
	require.Len(t, list, 2)
	assert.Equal(t, "MAIN", list[0].ID)
	assert.Equal(t, "MINE", list[1].ID)
	assert.Equal(t, "My Gmail", list[1].Label)

	assert.Len(t, svc.Providers("bob"), 1)

	_, err = svc.UploadProviders("alice", "smtp.txt", []byte("nothing useful"))
	assert.ErrorIs(t, err, provider.ErrEmptyFile)
}
