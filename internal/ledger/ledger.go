// Package ledger holds campaign counters and per-email tracking state in memory.
package ledger

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

var (
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrCampaignExists    = errors.New("campaign already exists")
	ErrTrackingIDInUse   = errors.New("tracking id already registered")
	ErrCampaignNotActive = errors.New("campaign is not sending")
)

// Ledger is a concurrency-safe store of campaigns and tracking records.
// A single lock covers both maps so a tracking callback and a dispatcher
// increment on the same campaign never interleave mid-update.
type Ledger struct {
	mu        sync.RWMutex
	campaigns map[string]*model.Campaign
	tracking  map[string]*model.TrackingRecord
	now       func() time.Time
}

// New creates an empty Ledger
func New() *Ledger {
	return &Ledger{
		campaigns: make(map[string]*model.Campaign),
		tracking:  make(map[string]*model.TrackingRecord),
		now:       time.Now,
	}
}

// Create stores a new campaign. Status defaults to sending and StartTime to now.
func (l *Ledger) Create(c model.Campaign) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.campaigns[c.ID]; ok {
		return ErrCampaignExists
	}
	if c.Status == "" {
		c.Status = model.CampaignStatusSending
	}
	if c.StartTime.IsZero() {
		c.StartTime = l.now()
	}
	l.campaigns[c.ID] = &c
	return nil
}

// Get returns a snapshot of the campaign with derived rates
func (l *Ledger) Get(campaignID string) (model.CampaignStats, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.campaigns[campaignID]
	if !ok {
		return model.CampaignStats{}, false
	}
	return c.Stats(), true
}

// List returns snapshots of every campaign, oldest first
func (l *Ledger) List() []model.CampaignStats {
	l.mu.RLock()
	out := make([]model.CampaignStats, 0, len(l.campaigns))
	for _, c := range l.campaigns {
		out = append(out, c.Stats())
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// IncrementSent records one successful send
func (l *Ledger) IncrementSent(campaignID string) error {
	return l.update(campaignID, func(c *model.Campaign) error {
		c.SentCount++
		return nil
	})
}

// IncrementFailed records one failed send
func (l *Ledger) IncrementFailed(campaignID string) error {
	return l.update(campaignID, func(c *model.Campaign) error {
		c.FailedCount++
		return nil
	})
}

// MarkCompleted closes a sending campaign as completed
func (l *Ledger) MarkCompleted(campaignID string) error {
	return l.finish(campaignID, model.CampaignStatusCompleted)
}

// MarkFailed closes a sending campaign as failed
func (l *Ledger) MarkFailed(campaignID string) error {
	return l.finish(campaignID, model.CampaignStatusFailed)
}

func (l *Ledger) finish(campaignID string, status model.CampaignStatus) error {
	return l.update(campaignID, func(c *model.Campaign) error {
		if c.Status != model.CampaignStatusSending {
			return ErrCampaignNotActive
		}
		end := l.now()
		c.Status = status
		c.EndTime = &end
		return nil
	})
}

func (l *Ledger) update(campaignID string, fn func(*model.Campaign) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.campaigns[campaignID]
	if !ok {
		return ErrCampaignNotFound
	}
	return fn(c)
}

// AddTracking registers a tracking record for an instrumented email
func (l *Ledger) AddTracking(rec model.TrackingRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tracking[rec.TrackingID]; ok {
		return ErrTrackingIDInUse
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = l.now()
	}
	rec.Opened = false
	rec.OpenedAt = nil
	rec.Clicks = nil
	l.tracking[rec.TrackingID] = &rec
	return nil
}

// Tracking returns a copy of a tracking record
func (l *Ledger) Tracking(trackingID string) (model.TrackingRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.tracking[trackingID]
	if !ok {
		return model.TrackingRecord{}, false
	}
	cp := *rec
	cp.Clicks = append([]model.Click(nil), rec.Clicks...)
	return cp, true
}

// RecordOpen marks the email as opened. Only the first open counts; unknown
// ids are ignored. It returns the owning campaign and whether anything changed.
func (l *Ledger) RecordOpen(trackingID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.tracking[trackingID]
	if !ok || rec.Opened {
		return "", false
	}
	now := l.now()
	rec.Opened = true
	rec.OpenedAt = &now
	if c, ok := l.campaigns[rec.CampaignID]; ok {
		c.OpenCount++
	}
	return rec.CampaignID, true
}

// RecordClick appends a click. Every call counts; unknown ids are ignored.
func (l *Ledger) RecordClick(trackingID, linkID, url string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.tracking[trackingID]
	if !ok {
		return "", false
	}
	rec.Clicks = append(rec.Clicks, model.Click{
		LinkID:    linkID,
		URL:       url,
		ClickedAt: l.now(),
	})
	if c, ok := l.campaigns[rec.CampaignID]; ok {
		c.ClickCount++
	}
	return rec.CampaignID, true
}
