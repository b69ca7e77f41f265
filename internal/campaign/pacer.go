package campaign

import (
	"context"
	"time"
)

// DefaultSendInterval is the pause between two consecutive sends of a campaign
const DefaultSendInterval = time.Second

// Pacer throttles consecutive sends within one campaign
type Pacer interface {
	Wait(ctx context.Context)
}

// FixedPacer waits the same interval every time. It never backs off.
type FixedPacer struct {
	Interval time.Duration
}

// NewFixedPacer returns a pacer for interval, falling back to DefaultSendInterval
// when interval is negative. A zero interval disables pacing.
func NewFixedPacer(interval time.Duration) *FixedPacer {
	if interval < 0 {
		interval = DefaultSendInterval
	}
	return &FixedPacer{Interval: interval}
}

// Wait blocks for the interval or until ctx is done
func (p *FixedPacer) Wait(ctx context.Context) {
	if p.Interval <= 0 {
		return
	}
	timer := time.NewTimer(p.Interval)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
