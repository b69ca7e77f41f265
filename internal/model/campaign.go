package model

import (
	"fmt"
	"time"
)

// CampaignStatus represents the lifecycle state of a campaign run
type CampaignStatus string

const (
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// Campaign is one bulk-send run with aggregate engagement counters
type Campaign struct {
	ID          string         `json:"id"`
	Subject     string         `json:"subject"`
	OwnerID     string         `json:"ownerId,omitempty"`
	ProviderID  string         `json:"providerId,omitempty"`
	StartTime   time.Time      `json:"startTime"`
	EndTime     *time.Time     `json:"endTime,omitempty"`
	TotalEmails int            `json:"totalEmails"`
	SentCount   int            `json:"sentCount"`
	FailedCount int            `json:"failedCount"`
	OpenCount   int            `json:"openCount"`
	ClickCount  int            `json:"clickCount"`
	Status      CampaignStatus `json:"status"`
}

// CampaignStats is a campaign snapshot with its derived rates
type CampaignStats struct {
	Campaign
	OpenRate  string `json:"openRate"`
	ClickRate string `json:"clickRate"`
}

// Stats returns a snapshot of c with open and click rates computed.
// openRate is opens over sent, clickRate is clicks over opens.
func (c Campaign) Stats() CampaignStats {
	if c.EndTime != nil {
		end := *c.EndTime
		c.EndTime = &end
	}
	return CampaignStats{
		Campaign:  c,
		OpenRate:  Rate(c.OpenCount, c.SentCount),
		ClickRate: Rate(c.ClickCount, c.OpenCount),
	}
}

// Rate formats part/whole as a percentage with two decimals.
// A zero whole yields "0.00%".
func Rate(part, whole int) string {
	if whole <= 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(part)/float64(whole)*100)
}
