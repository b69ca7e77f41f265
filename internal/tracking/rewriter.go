// Package tracking instruments outgoing HTML with open and click tracking.
package tracking

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

// anchorRe matches an opening anchor tag with a non-empty quoted href.
// Groups: 1 = "<a" plus everything up to "href", 2 = double-quoted url,
// 3 = single-quoted url, 4 = attributes after the href.
//
// This is a pattern rewrite, not an HTML parse. Unquoted hrefs and anchors
// split by comments are left alone.
var anchorRe = regexp.MustCompile(`(?i)(<a\s+(?:[^>]*?\s)?)href\s*=\s*(?:"([^"]+)"|'([^']+)')([^>]*)>`)

// Store is where tracking records are registered
type Store interface {
	AddTracking(rec model.TrackingRecord) error
}

// Rewriter injects a tracking pixel and click redirects into HTML bodies
type Rewriter struct {
	store   Store
	baseURL string
	newID   func() string
	now     func() time.Time
}

// NewRewriter creates a Rewriter whose links point at baseURL
func NewRewriter(store Store, baseURL string) *Rewriter {
	return &Rewriter{
		store:   store,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Instrument registers a tracking record for one recipient and returns the
// body with every anchor routed through the click endpoint and an open
// pixel appended.
func (r *Rewriter) Instrument(campaignID, recipientEmail, html string) (string, error) {
	trackingID := r.newID()

	if err := r.store.AddTracking(model.TrackingRecord{
		TrackingID:     trackingID,
		CampaignID:     campaignID,
		RecipientEmail: recipientEmail,
		SentAt:         r.now(),
	}); err != nil {
		return "", fmt.Errorf("register tracking record: %w", err)
	}

	rewritten := anchorRe.ReplaceAllStringFunc(html, func(tag string) string {
		m := anchorRe.FindStringSubmatch(tag)
		if m == nil {
			return tag
		}
		quote, target := `"`, m[2]
		if target == "" {
			quote, target = `'`, m[3]
		}
		return m[1] + "href=" + quote + r.ClickURL(trackingID, r.newID(), target) + quote + m[4] + ">"
	})

	return rewritten + r.pixelTag(trackingID), nil
}

// ClickURL builds the redirect URL for one link occurrence
func (r *Rewriter) ClickURL(trackingID, linkID, target string) string {
	return fmt.Sprintf("%s/track/click/%s/%s?url=%s", r.baseURL, trackingID, linkID, url.QueryEscape(target))
}

// OpenURL builds the pixel URL for a tracking id
func (r *Rewriter) OpenURL(trackingID string) string {
	return fmt.Sprintf("%s/track/open/%s", r.baseURL, trackingID)
}

func (r *Rewriter) pixelTag(trackingID string) string {
	return `<img src="` + r.OpenURL(trackingID) + `" width="1" height="1" style="display:none;" />`
}
