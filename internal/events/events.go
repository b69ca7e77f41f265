// Package events publishes engagement events (opens and clicks) for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LUCIFER14144/email-marketing-platform/internal/database"
)

// Kind identifies an engagement event
type Kind string

const (
	KindOpen  Kind = "open"
	KindClick Kind = "click"
)

// Event is one recorded engagement
type Event struct {
	Kind       Kind      `json:"kind"`
	CampaignID string    `json:"campaignId"`
	TrackingID string    `json:"trackingId"`
	LinkID     string    `json:"linkId,omitempty"`
	URL        string    `json:"url,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher fans engagement events out
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// RedisPublisher publishes events as JSON on a Redis channel
type RedisPublisher struct {
	rdb     *database.Redis
	channel string
}

// NewRedisPublisher creates a publisher on channel
func NewRedisPublisher(rdb *database.Redis, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

// Channel returns the channel events are published on
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Publish encodes e and publishes it
func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(context.Context, Event) error {
	return nil
}
