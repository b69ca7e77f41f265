// Package handler implements the HTTP API: auth, providers, campaigns and tracking callbacks.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/LUCIFER14144/email-marketing-platform/internal/config"
	"github.com/LUCIFER14144/email-marketing-platform/internal/database"
	"github.com/LUCIFER14144/email-marketing-platform/internal/events"
	"github.com/LUCIFER14144/email-marketing-platform/internal/ledger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/logger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/service"
)

// Version is reported by the health endpoint
var Version = "dev"

// Handler holds all HTTP handlers
type Handler struct {
	rdb         *database.Redis // nil when Redis is disabled
	log         *logger.Logger
	cfg         *config.Config
	authSvc     *service.AuthService
	campaignSvc *service.CampaignService
	ledger      *ledger.Ledger
	events      events.Publisher
}

// New creates a new Handler instance
func New(rdb *database.Redis, log *logger.Logger, cfg *config.Config, authSvc *service.AuthService, campaignSvc *service.CampaignService, l *ledger.Ledger, publisher events.Publisher) *Handler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Handler{
		rdb:         rdb,
		log:         log,
		cfg:         cfg,
		authSvc:     authSvc,
		campaignSvc: campaignSvc,
		ledger:      l,
		events:      publisher,
	}
}

// JSON helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
