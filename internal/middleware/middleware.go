// Package middleware wraps HTTP handlers with recovery, request ids, logging, rate limits and auth.
package middleware

import (
	"net/netip"

	"github.com/LUCIFER14144/email-marketing-platform/internal/config"
	"github.com/LUCIFER14144/email-marketing-platform/internal/database"
	"github.com/LUCIFER14144/email-marketing-platform/internal/logger"
)

// Middleware holds all HTTP middleware
type Middleware struct {
	rdb     *database.Redis // nil when Redis is disabled
	log     *logger.Logger
	cfg     *config.Config
	proxies []netip.Prefix
}

// New creates a new Middleware instance
func New(rdb *database.Redis, log *logger.Logger, cfg *config.Config) *Middleware {
	proxies, invalid := parseTrustedProxies(cfg.Server.TrustedProxies)
	if len(invalid) > 0 {
		log.Warn().Strs("entries", invalid).Msg("ignoring invalid trusted proxy entries")
	}
	return &Middleware{
		rdb:     rdb,
		log:     log,
		cfg:     cfg,
		proxies: proxies,
	}
}
