package model

import "time"

// Click is one click-through on a rewritten link
type Click struct {
	LinkID    string    `json:"linkId"`
	URL       string    `json:"url"`
	ClickedAt time.Time `json:"clickedAt"`
}

// TrackingRecord is the open/click history of one instrumented email
type TrackingRecord struct {
	TrackingID     string     `json:"trackingId"`
	CampaignID     string     `json:"campaignId"`
	RecipientEmail string     `json:"recipientEmail"`
	SentAt         time.Time  `json:"sentAt"`
	Opened         bool       `json:"opened"`
	OpenedAt       *time.Time `json:"openedAt,omitempty"`
	Clicks         []Click    `json:"clicks"`
}
