package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/LUCIFER14144/email-marketing-platform/internal/auth"
	"github.com/LUCIFER14144/email-marketing-platform/internal/campaign"
	"github.com/LUCIFER14144/email-marketing-platform/internal/config"
	"github.com/LUCIFER14144/email-marketing-platform/internal/database"
	"github.com/LUCIFER14144/email-marketing-platform/internal/events"
	"github.com/LUCIFER14144/email-marketing-platform/internal/handler"
	"github.com/LUCIFER14144/email-marketing-platform/internal/ledger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/logger"
	"github.com/LUCIFER14144/email-marketing-platform/internal/middleware"
	"github.com/LUCIFER14144/email-marketing-platform/internal/provider"
	"github.com/LUCIFER14144/email-marketing-platform/internal/repository"
	"github.com/LUCIFER14144/email-marketing-platform/internal/router"
	"github.com/LUCIFER14144/email-marketing-platform/internal/service"
	"github.com/LUCIFER14144/email-marketing-platform/internal/tracking"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", handler.Version).Msg("starting bulk mail server")

	// Error reporting
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     handler.Version,
		}); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Sentry")
		}
		defer sentry.Flush(2 * time.Second)
		log.Info().Msg("Sentry error reporting enabled")
	}

	// Connect to Redis (optional: rate limits and engagement events)
	var rdb *database.Redis
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Redis.Enabled {
		rdb, err = database.NewRedis(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb, cfg.Redis.EventsChannel)
		log.Info().Str("events_channel", cfg.Redis.EventsChannel).Msg("connected to Redis")
	} else {
		log.Warn().Msg("Redis disabled: rate limiting and engagement events are off")
	}

	// Campaign state and providers
	campaigns := ledger.New()
	registry := provider.NewRegistry(provider.LoadFromEnv(os.Environ()))
	log.Info().Int("providers", len(registry.List(""))).Msg("email providers loaded from environment")

	rewriter := tracking.NewRewriter(campaigns, cfg.TrackingBaseURL())
	log.Info().Str("base_url", cfg.TrackingBaseURL()).Msg("tracking enabled")

	dispatcher := campaign.NewDispatcher(campaigns, registry, rewriter, nil, campaign.NewFixedPacer(cfg.Campaign.SendInterval), log)

	// Initialize token service
	tokenSvc, err := auth.NewTokenService(cfg.Security.Tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token service")
	}

	// Initialize services
	userRepo := repository.NewUserRepository()
	authSvc := service.NewAuthService(userRepo, tokenSvc, cfg, log)
	campaignSvc := service.NewCampaignService(dispatcher, campaigns, registry, nil, cfg.Campaign, log)

	// Initialize handlers
	h := handler.New(rdb, log, cfg, authSvc, campaignSvc, campaigns, publisher)

	// Initialize middleware
	mw := middleware.New(rdb, log, cfg)

	// Set up router
	r := router.New(h, mw, cfg, authSvc)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
