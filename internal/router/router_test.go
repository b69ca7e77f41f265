package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LUCIFER14144/email-marketing-platform/internal/auth"
	"github.com/LUCIFER14144/email-marketing-platform/internal/campaign"
	"github.com/LUCIFER14144/email-marketing-platform/internal/config"
	"github.com/LUCIFER14144/email-marketing-platform/internal/handler"
	"github.com/LUCIFER14144/email-marketing-platform/internal/ledger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/logger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/mail"
	"github.com/LUCIFER14144/email-marketing-platform/internal/middleware"
	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
	"github.com/LUCIFER14144/email-marketing-platform/internal/provider"
	"github.com/LUCIFER14144/email-marketing-platform/internal/repository"
	"github.com/LUCIFER14144/email-marketing-platform/internal/service"
	"github.com/LUCIFER14144/email-marketing-platform/internal/tracking"
)

var (
	openURLRe  = regexp.MustCompile(`https://t\.example\.com(/track/open/[0-9a-f-]{36})`)
	clickURLRe = regexp.MustCompile(`https://t\.example\.com(/track/click/[^"]+)"`)
)

type stubTransport struct {
	mu      sync.Mutex
	sent    []*mail.Message
	failFor map[string]bool
}

func (s *stubTransport) Name() string { return "stub" }

func (s *stubTransport) Send(_ context.Context, msg *mail.Message) (*mail.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	if s.failFor[msg.To] {
		return nil, errors.New("550 mailbox unavailable")
	}
	return &mail.SendResult{MessageID: "<" + msg.To + ">"}, nil
}

type testServer struct {
	t         *testing.T
	cfg       *config.Config
	handler   http.Handler
	transport *stubTransport
	ledger    *ledger.Ledger
	token     string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Port = 3000
	cfg.Security.Password.MinLength = 8
	cfg.Security.Password.Argon2Memory = 1024
	cfg.Security.Password.Argon2Iterations = 1
	cfg.Security.Password.Argon2Parallelism = 1
	cfg.Security.Tokens = config.TokenConfig{Secret: "router-secret", AccessTokenTTL: time.Hour, Issuer: "bulkmail"}
	cfg.Campaign = config.CampaignConfig{MaxResults: 2, MaxConcurrent: 2}
	cfg.Tracking.BaseURL = "https://t.example.com"
	cfg.CORS.AllowedOrigins = []string{"http://localhost:5173"}

	log := logger.Nop()
	ts := &testServer{
		t:         t,
		cfg:       cfg,
		transport: &stubTransport{failFor: map[string]bool{}},
		ledger:    ledger.New(),
	}
	factory := func(_ context.Context, p *model.Provider) (mail.Transport, error) {
		if p.Service == "broken" {
			return nil, errors.New("dial tcp: connection refused")
		}
		return ts.transport, nil
	}

	registry := provider.NewRegistry(map[string]model.Provider{
		"MAIN":   {ID: "MAIN", Label: "Main SMTP", Service: "custom", User: "news@acme.test", Password: "pw", Host: "relay.local"},
		"BROKEN": {ID: "BROKEN", Label: "Broken", Service: "broken", User: "x@acme.test", Password: "pw"},
	})
	rewriter := tracking.NewRewriter(ts.ledger, cfg.TrackingBaseURL())
	dispatcher := campaign.NewDispatcher(ts.ledger, registry, rewriter, factory, campaign.NewFixedPacer(0), log)

	tokens, err := auth.NewTokenService(cfg.Security.Tokens)
	require.NoError(t, err)
	authSvc := service.NewAuthService(repository.NewUserRepository(), tokens, cfg, log)
	campaignSvc := service.NewCampaignService(dispatcher, ts.ledger, registry, factory, cfg.Campaign, log)

	h := handler.New(nil, log, cfg, authSvc, campaignSvc, ts.ledger, nil)
	ts.handler = New(h, middleware.New(nil, log, cfg), cfg, authSvc)
	return ts
}

func (ts *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	ts.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) upload(path, field, filename, content string) *httptest.ResponseRecorder {
	ts.t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(ts.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(ts.t, err)
	require.NoError(ts.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ts.token)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) signIn() {
	ts.t.Helper()

	rec := ts.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice",
		"password": "sup3r-secret",
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token struct {
			Token string `json:"token"`
		} `json:"token"`
	}
	decode(ts.t, rec, &resp)
	require.NotEmpty(ts.t, resp.Token.Token)
	ts.token = resp.Token.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type bulkResponse struct {
	Success    bool                    `json:"success"`
	Message    string                  `json:"message"`
	CampaignID string                  `json:"campaignId"`
	Results    []model.RecipientResult `json:"results"`
	Stats      model.CampaignStats     `json:"stats"`
	Error      string                  `json:"error"`
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.HealthResponse
	decode(t, rec, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Services["ledger"])
	assert.NotContains(t, resp.Services, "redis")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/providers", "/api/campaigns", "/api/stats/abc"} {
		rec := ts.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.JSONEq(t, `{"success":false,"error":"Not authenticated"}`, rec.Body.String())
	}

	rec := ts.do(http.MethodPost, "/api/send-bulk", map[string]interface{}{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthStatus(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/auth/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"authenticated":false}`, rec.Body.String())

	ts.signIn()
	rec = ts.do(http.MethodGet, "/api/auth/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Authenticated bool `json:"authenticated"`
		User          struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	decode(t, rec, &resp)
	assert.True(t, resp.Authenticated)
	assert.Equal(t, "alice", resp.User.Username)
}

func TestRegisterDuplicateAndLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn()
	ts.token = ""

	rec := ts.do(http.MethodPost, "/api/auth/register", map[string]string{"username": "alice", "password": "sup3r-secret"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "sup3r-secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.TokenCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	// The cookie alone authenticates
	req := httptest.NewRequest(http.MethodGet, "/api/campaigns", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	ts.handler.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)
}

func TestSendBulkEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn()
	ts.transport.failFor["bad@example.com"] = true

	rec := ts.do(http.MethodPost, "/api/send-bulk", map[string]interface{}{
		"providerId": "MAIN",
		"from":       "Acme",
		"subject":    "Spring sale",
		"message":    `<p>Hi {{ name }}</p><a href="https://acme.test/sale">Shop</a>`,
		"emailList": []interface{}{
			map[string]string{"email": "ann@example.com", "name": "Ann"},
			"bad@example.com",
			"carl@example.com",
			"not-an-address",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp bulkResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "Campaign completed: 2 sent, 2 failed", resp.Message)
	assert.Len(t, resp.Results, 2, "results are capped at campaign.max_results")
	assert.Equal(t, model.DeliverySent, resp.Results[0].Status)
	assert.Equal(t, model.DeliveryFailed, resp.Results[1].Status)
	assert.Equal(t, 4, resp.Stats.TotalEmails)
	assert.Equal(t, 2, resp.Stats.SentCount)
	assert.Equal(t, 2, resp.Stats.FailedCount)
	assert.Equal(t, model.CampaignStatusCompleted, resp.Stats.Status)
	assert.Equal(t, "alice", resp.Stats.OwnerID)

	require.Len(t, ts.transport.sent, 3)
	first := ts.transport.sent[0]
	assert.Equal(t, "Acme <news@acme.test>", first.From)
	assert.Contains(t, first.HTML, "<p>Hi Ann</p>")

	// Open the first email twice: only the first open counts
	open := openURLRe.FindStringSubmatch(first.HTML)
	require.Len(t, open, 2)
	for i := 0; i < 2; i++ {
		rec = ts.do(http.MethodGet, open[1], nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/gif", rec.Header().Get("Content-Type"))
		assert.Equal(t, tracking.Pixel(), rec.Body.Bytes())
	}

	// Click the link
	click := clickURLRe.FindStringSubmatch(first.HTML)
	require.Len(t, click, 2)
	rec = ts.do(http.MethodGet, strings.ReplaceAll(click[1], "&amp;", "&"), nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://acme.test/sale", rec.Header().Get("Location"))

	rec = ts.do(http.MethodGet, "/api/stats/"+resp.CampaignID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		Success bool                `json:"success"`
		Stats   model.CampaignStats `json:"stats"`
	}
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.Stats.OpenCount)
	assert.Equal(t, 1, stats.Stats.ClickCount)
	assert.Equal(t, "50.00%", stats.Stats.OpenRate)
	assert.Equal(t, "100.00%", stats.Stats.ClickRate)

	rec = ts.do(http.MethodGet, "/api/campaigns", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Campaigns []model.CampaignStats `json:"campaigns"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Campaigns, 1)
	assert.Equal(t, resp.CampaignID, list.Campaigns[0].ID)
}

func TestSendBulkKeepsMalformedEntriesInPlace(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn()
	ts.cfg.Campaign.MaxResults = 0

	rec := ts.do(http.MethodPost, "/api/send-bulk", map[string]interface{}{
		"providerId": "MAIN",
		"subject":    "Hello",
		"message":    "<p>Hi</p>",
		"emailList":  []string{"a@x.io", "not-an-address", "c@x.io"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp bulkResponse
	decode(t, rec, &resp)
	assert.Equal(t, 3, resp.Stats.TotalEmails)
	assert.Equal(t, 2, resp.Stats.SentCount)
	assert.Equal(t, 1, resp.Stats.FailedCount)
	assert.Equal(t, "0.00%", resp.Stats.OpenRate)
	assert.Equal(t, "0.00%", resp.Stats.ClickRate)

	require.Len(t, resp.Results, 3)
	assert.Equal(t, "a@x.io", resp.Results[0].Email)
	assert.Equal(t, model.DeliverySent, resp.Results[0].Status)
	assert.Equal(t, "not-an-address", resp.Results[1].Email)
	assert.Equal(t, model.DeliveryFailed, resp.Results[1].Status)
	assert.Contains(t, resp.Results[1].Error, "invalid email address")
	assert.Equal(t, "c@x.io", resp.Results[2].Email)
	assert.Equal(t, model.DeliverySent, resp.Results[2].Status)

	// The malformed entry never reaches the provider
	require.Len(t, ts.transport.sent, 2)
	assert.Equal(t, "a@x.io", ts.transport.sent[0].To)
	assert.Equal(t, "c@x.io", ts.transport.sent[1].To)
}

func TestSendBulkTrackingDisabled(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn()

	message := `<a href="https://acme.test">Go</a>`
	rec := ts.do(http.MethodPost, "/api/send-bulk", map[string]interface{}{
		"providerId":      "MAIN",
		"subject":         "Plain",
		"message":         message,
		"trackingEnabled": false,
		"emailList":       []string{"ann@example.com"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, ts.transport.sent, 1)
	assert.Equal(t, message, ts.transport.sent[0].HTML)
}

func TestSendBulkErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn()

	cases := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{"missing fields", map[string]interface{}{"providerId": "MAIN"}, http.StatusBadRequest},
		{"empty list", map[string]interface{}{"providerId": "MAIN", "subject": "s", "message": "m", "emailList": []string{}}, http.StatusBadRequest},
		{"unknown provider", map[string]interface{}{"providerId": "NOPE", "subject": "s", "message": "m", "emailList": []string{"a@b.c"}}, http.StatusBadRequest},
		{"bad format", map[string]interface{}{"providerId": "MAIN", "subject": "s", "message": "m", "format": "rtf", "emailList": []string{"a@b.c"}}, http.StatusBadRequest},
		{"unknown field", map[string]interface{}{"providerId": "MAIN", "subject": "s", "message": "m", "emailList": []string{"a@b.c"}, "cc": "x"}, http.StatusBadRequest},
		{"transport unavailable", map[string]interface{}{"providerId": "BROKEN", "subject": "s", "message": "m", "emailList": []string{"a@b.c"}}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api/send-bulk", tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())

			var resp bulkResponse
			decode(t, rec, &resp)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}

	// Only the transport failure created a campaign, and it is marked failed
	campaigns := ts.ledger.List()
	require.Len(t, campaigns, 1)
	assert.Equal(t, model.CampaignStatusFailed, campaigns[0].Status)
	assert.Empty(t, ts.transport.sent)
}

func TestSendEmail(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn()

	rec := ts.do(http.MethodPost, "/send-email", map[string]string{
		"to":         "bob@example.com",
		"subject":    "Hello",
		"message":    "Hi Bob",
		"providerId": "MAIN",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"Email sent successfully via Main SMTP!","messageId":"<bob@example.com>","provider":"Main SMTP"}`, rec.Body.String())

	require.Len(t, ts.transport.sent, 1)
	assert.Equal(t, "Hi Bob", ts.transport.sent[0].Text)
	assert.Contains(t, ts.transport.sent[0].HTML, "Sent via: Main SMTP")
	assert.Empty(t, ts.ledger.List(), "single sends are not campaigns")

	rec = ts.do(http.MethodPost, "/send-email", map[string]string{
		"to": "bob at example", "subject": "Hello", "message": "Hi", "providerId": "MAIN",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid email address"}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/send-email", map[string]string{"to": "bob@example.com", "providerId": "MAIN"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploads(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn()

	rec := ts.upload("/api/upload-smtp", "smtpFile", "smtp.txt", "MINE|gmail|me@gmail.com|app-pass|My Gmail\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var providers struct {
		Message   string                  `json:"message"`
		Providers []model.ProviderSummary `json:"providers"`
	}
	decode(t, rec, &providers)
	assert.Equal(t, "Successfully loaded 1 SMTP configuration(s)", providers.Message)
	assert.Contains(t, providers.Providers, model.ProviderSummary{ID: "MINE", Label: "My Gmail", User: "me@gmail.com"})
	assert.NotContains(t, rec.Body.String(), "app-pass")

	rec = ts.upload("/api/upload-smtp", "smtpFile", "smtp.txt", "garbage\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var lines strings.Builder
	for i := 0; i < 12; i++ {
		lines.WriteString("user")
		lines.WriteByte(byte('a' + i))
		lines.WriteString("@example.com\n")
	}
	lines.WriteString("no-at-sign\n")

	rec = ts.upload("/api/upload-emails", "emailFile", "list.txt", lines.String())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var emails struct {
		Emails     []model.Recipient `json:"emails"`
		TotalCount int               `json:"totalCount"`
	}
	decode(t, rec, &emails)
	assert.Equal(t, 12, emails.TotalCount)
	assert.Len(t, emails.Emails, 10)

	rec = ts.upload("/api/upload-emails", "emailFile", "list.json", "{not an array")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsUnknownCampaign(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn()

	rec := ts.do(http.MethodGet, "/api/stats/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Campaign not found"}`, rec.Body.String())
}

func TestTrackingUnknownIDs(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/track/open/unknown", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/gif", rec.Header().Get("Content-Type"))

	rec = ts.do(http.MethodGet, "/track/click/unknown/link?url=https%3A%2F%2Fexample.com%2Fa%3Fb%3D1", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/a?b=1", rec.Header().Get("Location"))

	rec = ts.do(http.MethodGet, "/track/click/unknown/link?url=mailto%3Asales%40acme.test", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "mailto:sales@acme.test", rec.Header().Get("Location"))

	rec = ts.do(http.MethodGet, "/track/click/unknown/link?url=javascript%3Aalert(1)", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/send-bulk", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
