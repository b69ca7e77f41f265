package router

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/LUCIFER14144/email-marketing-platform/internal/config"
	"github.com/LUCIFER14144/email-marketing-platform/internal/handler"
	"github.com/LUCIFER14144/email-marketing-platform/internal/middleware"
)

// New creates and configures the HTTP router
func New(h *handler.Handler, mw *middleware.Middleware, cfg *config.Config, authn middleware.Authenticator) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints (no auth required)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	// Tracking callbacks are hit by mail clients: no auth, never rate limited
	mux.HandleFunc("GET /track/open/{trackingId}", h.TrackOpen)
	mux.HandleFunc("GET /track/click/{trackingId}/{linkId}", h.TrackClick)

	rl := cfg.Security.RateLimiting

	// Public authentication routes (rate limited)
	authRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "auth",
		Limit:  rl.AuthLimit,
		Window: rl.AuthWindow,
		KeyFn:  middleware.IPKey,
	})
	mux.Handle("POST /api/auth/register", authRateLimit(http.HandlerFunc(h.Register)))
	mux.Handle("POST /api/auth/login", authRateLimit(http.HandlerFunc(h.Login)))

	// Protected routes (require auth)
	authMw := mw.Auth(authn)

	mux.Handle("POST /api/auth/logout", authMw(http.HandlerFunc(h.Logout)))
	mux.Handle("GET /api/auth/status", mw.OptionalAuth(authn)(http.HandlerFunc(h.Status)))

	mux.Handle("GET /api/providers", authMw(http.HandlerFunc(h.Providers)))
	mux.Handle("POST /api/upload-smtp", authMw(http.HandlerFunc(h.UploadSMTP)))
	mux.Handle("POST /api/upload-emails", authMw(http.HandlerFunc(h.UploadEmails)))

	// Sends are limited per user, so the limiter runs after auth
	sendRateLimit := mw.RateLimit(middleware.RateLimitConfig{
		Name:   "send",
		Limit:  rl.SendLimit,
		Window: rl.SendWindow,
		KeyFn:  middleware.UserKey,
	})
	mux.Handle("POST /api/send-bulk", authMw(sendRateLimit(http.HandlerFunc(h.SendBulk))))
	mux.Handle("POST /send-email", authMw(sendRateLimit(http.HandlerFunc(h.SendEmail))))

	mux.Handle("GET /api/stats/{campaignId}", authMw(http.HandlerFunc(h.Stats)))
	mux.Handle("GET /api/campaigns", authMw(http.HandlerFunc(h.Campaigns)))

	// Apply middleware stack
	var handler http.Handler = mux

	handler = cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	})(handler)

	// Request logging
	handler = mw.Logger(handler)

	// Client address for logs and rate limits
	handler = mw.ClientAddr(handler)

	// Request ID
	handler = mw.RequestID(handler)

	// Panic recovery (outermost)
	handler = mw.Recover(handler)

	return handler
}
