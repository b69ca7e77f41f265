// Package bulkmail is a Go client for the bulk mail HTTP API.
package bulkmail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config holds the configuration for the client.
type Config struct {
	// BaseURL is the root URL of the server, e.g. "https://mail.example.com".
	BaseURL string

	// Token is an access token obtained from Login or Register. It can also
	// be set later with SetToken.
	Token string

	// HTTPClient is an optional custom HTTP client. Bulk sends block until
	// the whole campaign has been attempted, so the default client has no
	// overall timeout.
	HTTPClient *http.Client
}

func (c *Config) defaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
}

// Client calls the bulk mail API on behalf of one user.
type Client struct {
	cfg Config

	mu    sync.RWMutex
	token string
}

// NewClient creates a new client with the given configuration.
func NewClient(cfg Config) *Client {
	cfg.defaults()
	return &Client{cfg: cfg, token: cfg.Token}
}

// SetToken replaces the access token used for authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current access token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, username, password string) (*AuthResponse, error) {
	return c.authenticate(ctx, "/api/auth/register", username, password)
}

// Login authenticates and keeps the returned token.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	return c.authenticate(ctx, "/api/auth/login", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, http.MethodPost, path, map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.SetToken(resp.Token.Token)
	return &resp, nil
}

// Logout ends the session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Providers lists the providers available to the user.
func (c *Client) Providers(ctx context.Context) ([]Provider, error) {
	var resp struct {
		Providers []Provider `json:"providers"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/providers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Providers, nil
}

// SendBulk runs a campaign. It returns once every recipient has been attempted.
func (c *Client) SendBulk(ctx context.Context, req SendBulkRequest) (*SendBulkResponse, error) {
	var resp SendBulkResponse
	if err := c.do(ctx, http.MethodPost, "/api/send-bulk", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendEmail sends one untracked message.
func (c *Client) SendEmail(ctx context.Context, req SendEmailRequest) (*SendEmailResponse, error) {
	var resp SendEmailResponse
	if err := c.do(ctx, http.MethodPost, "/send-email", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns one campaign's counters and rates.
func (c *Client) Stats(ctx context.Context, campaignID string) (*CampaignStats, error) {
	var resp struct {
		Stats CampaignStats `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/stats/"+campaignID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}

// Campaigns lists every campaign the server knows about.
func (c *Client) Campaigns(ctx context.Context) ([]CampaignStats, error) {
	var resp struct {
		Campaigns []CampaignStats `json:"campaigns"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/campaigns", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Campaigns, nil
}

// WaitForOpens polls a campaign until its open count reaches want or ctx ends.
func (c *Client) WaitForOpens(ctx context.Context, campaignID string, want int, every time.Duration) (*CampaignStats, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		stats, err := c.Stats(ctx, campaignID)
		if err != nil {
			return nil, err
		}
		if stats.OpenCount >= want {
			return stats, nil
		}
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-ticker.C:
		}
	}
}

// do sends a JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("bulkmail: failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("bulkmail: failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("bulkmail: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("bulkmail: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("bulkmail: failed to parse response: %w", err)
	}
	return nil
}
