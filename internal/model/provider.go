package model

import "fmt"

// ServiceCustom selects a plain SMTP relay addressed by Host and Port
const ServiceCustom = "custom"

// Provider is a resolved outbound mail account
type Provider struct {
	ID       string `json:"id" yaml:"-"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
	Service  string `json:"service" yaml:"service"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
}

// ProviderSummary is what the API exposes about a provider. Credentials never leave the server.
type ProviderSummary struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	User  string `json:"user"`
}

// Summary returns the public view of the provider
func (p *Provider) Summary() ProviderSummary {
	return ProviderSummary{ID: p.ID, Label: p.Label, User: p.User}
}

// Complete reports whether the provider carries the minimum fields to build a transport
func (p *Provider) Complete() bool {
	return p.Service != "" && p.User != "" && p.Password != ""
}

// DefaultLabel fills Label with "service (user)" when empty
func (p *Provider) DefaultLabel() {
	if p.Label == "" {
		p.Label = fmt.Sprintf("%s (%s)", p.Service, p.User)
	}
}

// FromHeader formats the From header for a message sent through p
func (p *Provider) FromHeader(displayName string) string {
	if displayName == "" {
		return p.User
	}
	return fmt.Sprintf("%s <%s>", displayName, p.User)
}
