package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/LUCIFER14144/email-marketing-platform/internal/events"
	"github.com/LUCIFER14144/email-marketing-platform/internal/tracking"
)

const publishTimeout = 2 * time.Second

// TrackOpen records an open and always answers with the 1x1 pixel
func (h *Handler) TrackOpen(w http.ResponseWriter, r *http.Request) {
	trackingID := r.PathValue("trackingId")

	if campaignID, changed := h.ledger.RecordOpen(trackingID); changed {
		h.publish(r.Context(), events.Event{
			Kind:       events.KindOpen,
			CampaignID: campaignID,
			TrackingID: trackingID,
		})
	}

	tracking.ServePixel(w)
}

// TrackClick records a click and always redirects
func (h *Handler) TrackClick(w http.ResponseWriter, r *http.Request) {
	trackingID := r.PathValue("trackingId")
	linkID := r.PathValue("linkId")
	target := r.URL.Query().Get("url")

	if campaignID, ok := h.ledger.RecordClick(trackingID, linkID, target); ok {
		h.publish(r.Context(), events.Event{
			Kind:       events.KindClick,
			CampaignID: campaignID,
			TrackingID: trackingID,
			LinkID:     linkID,
			URL:        target,
		})
	}

	http.Redirect(w, r, tracking.SafeRedirectTarget(target), http.StatusFound)
}

// publish never fails the tracking request
func (h *Handler) publish(ctx context.Context, e events.Event) {
	e.At = time.Now().UTC()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := h.events.Publish(ctx, e); err != nil {
		h.log.Warn().Err(err).Str("kind", string(e.Kind)).Str("campaign_id", e.CampaignID).Msg("failed to publish engagement event")
	}
}
