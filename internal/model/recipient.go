package model

import "strings"

// Recipient is one entry of a campaign's recipient list
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Valid reports whether the address looks deliverable enough to attempt
func (r Recipient) Valid() bool {
	return strings.Contains(r.Email, "@")
}

// DeliveryStatus is the per-recipient outcome of a send attempt
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// RecipientResult records what happened to one recipient of a campaign
type RecipientResult struct {
	Email     string         `json:"email"`
	Status    DeliveryStatus `json:"status"`
	MessageID string         `json:"messageId,omitempty"`
	Error     string         `json:"error,omitempty"`
}
