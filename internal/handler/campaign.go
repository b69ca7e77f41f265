package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/LUCIFER14144/email-marketing-platform/internal/campaign"
	"github.com/LUCIFER14144/email-marketing-platform/internal/middleware"
	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
	"github.com/LUCIFER14144/email-marketing-platform/internal/provider"
	"github.com/LUCIFER14144/email-marketing-platform/internal/service"
)

// recipientInput accepts either "addr@example.com" or {"email": ..., "name": ...}
type recipientInput model.Recipient

func (ri *recipientInput) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		ri.Email = s
		return nil
	}
	var r model.Recipient
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*ri = recipientInput(r)
	return nil
}

type sendBulkRequest struct {
	ProviderID      string           `json:"providerId"`
	From            string           `json:"from"`
	Subject         string           `json:"subject"`
	Message         string           `json:"message"`
	Format          string           `json:"format"`
	TrackingEnabled *bool            `json:"trackingEnabled"`
	EmailList       []recipientInput `json:"emailList"`
}

// SendBulk runs a campaign and answers once every recipient has been attempted
func (h *Handler) SendBulk(w http.ResponseWriter, r *http.Request) {
	var req sendBulkRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ProviderID == "" || req.Subject == "" || req.Message == "" || req.EmailList == nil {
		writeError(w, http.StatusBadRequest, "Missing required fields: providerId, subject, message, emailList")
		return
	}

	// Every entry is attempted in order; malformed ones are reported as failed
	list := make([]model.Recipient, len(req.EmailList))
	for i, ri := range req.EmailList {
		list[i] = model.Recipient{Email: strings.TrimSpace(ri.Email), Name: strings.TrimSpace(ri.Name)}
	}

	tracking := true
	if req.TrackingEnabled != nil {
		tracking = *req.TrackingEnabled
	}

	out, err := h.campaignSvc.Send(r.Context(), campaign.Request{
		UserID:          middleware.GetUsername(r.Context()),
		ProviderID:      req.ProviderID,
		From:            req.From,
		Subject:         req.Subject,
		Message:         req.Message,
		Format:          req.Format,
		Recipients:      list,
		TrackingEnabled: tracking,
	})
	if err != nil {
		h.writeSendError(w, err)
		return
	}

	results := out.Results
	if limit := h.cfg.Campaign.MaxResults; limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    fmt.Sprintf("Campaign completed: %d sent, %d failed", out.Campaign.SentCount, out.Campaign.FailedCount),
		"campaignId": out.Campaign.ID,
		"results":    results,
		"stats":      out.Campaign,
	})
}

type sendEmailRequest struct {
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Message    string `json:"message"`
	From       string `json:"from"`
	ProviderID string `json:"providerId"`
}

// SendEmail sends a single untracked message
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.campaignSvc.SendSingle(r.Context(), service.SingleSendRequest{
		UserID:     middleware.GetUsername(r.Context()),
		ProviderID: req.ProviderID,
		From:       req.From,
		To:         req.To,
		Subject:    req.Subject,
		Message:    req.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingSendFields):
			writeError(w, http.StatusBadRequest, "All fields (to, subject, message) are required")
		case errors.Is(err, service.ErrInvalidRecipient):
			writeError(w, http.StatusBadRequest, "Invalid email address")
		default:
			h.writeSendError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   fmt.Sprintf("Email sent successfully via %s!", res.Provider),
		"messageId": res.MessageID,
		"provider":  res.Provider,
	})
}

func (h *Handler) writeSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, campaign.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, provider.ErrNotFound):
		writeError(w, http.StatusBadRequest, "Selected email provider not found. Please upload SMTP configuration first.")
	case errors.Is(err, service.ErrTooManyCampaigns):
		writeError(w, http.StatusServiceUnavailable, "Too many campaigns are running. Please try again later.")
	case errors.Is(err, campaign.ErrTransportUnavailable):
		h.log.Error().Err(err).Msg("email transport unavailable")
		writeError(w, http.StatusInternalServerError, "Failed to connect to email provider: "+err.Error())
	default:
		h.log.Error().Err(err).Msg("send failed")
		writeError(w, http.StatusInternalServerError, "Failed to send email: "+err.Error())
	}
}

// Stats returns one campaign's counters and rates
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.campaignSvc.Stats(r.PathValue("campaignId"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Campaign not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

// Campaigns lists every campaign in start order
func (h *Handler) Campaigns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"campaigns": h.campaignSvc.Campaigns(),
	})
}
