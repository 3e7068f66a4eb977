// Package main is the entrypoint for the Clearview server.
//
// Clearview is the trust core of a multi-tenant CRM: it issues and
// rotates tenant API credentials, applies billing webhook events to
// subscription state, and answers entitlement checks for the rest of
// the platform.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/clearviewcrm/clearview/internal/api"
	"github.com/clearviewcrm/clearview/internal/audit"
	"github.com/clearviewcrm/clearview/internal/auth"
	"github.com/clearviewcrm/clearview/internal/billing"
	"github.com/clearviewcrm/clearview/internal/config"
	"github.com/clearviewcrm/clearview/internal/credentials"
	"github.com/clearviewcrm/clearview/internal/db"
	"github.com/clearviewcrm/clearview/internal/entitlement"
	"github.com/clearviewcrm/clearview/internal/maintenance"
	"github.com/clearviewcrm/clearview/internal/metrics"
	"github.com/rs/zerolog"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()
	if os.Getenv("ENV") != string(config.EnvProduction) {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Msg("Starting Clearview server")

	// Load configuration
	cfg := config.LoadServerConfig()

	// Connect to database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL environment variable is required")
		return 1
	}

	database, err := db.New(ctx, db.DefaultConfig(databaseURL), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
		return 1
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run database migrations")
		return 1
	}

	// Initialize session store
	if cfg.SessionSecret == "" {
		logger.Fatal().Msg("SESSION_SECRET environment variable is required")
		return 1
	}

	isSecure := cfg.Environment == config.EnvProduction
	sessionCfg := auth.DefaultSessionConfig([]byte(cfg.SessionSecret), isSecure)
	sessions, err := auth.NewSessionStore(sessionCfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize session store")
		return 1
	}

	// Webhook secret is what keeps forged billing events out.
	if cfg.WebhookSecret == "" && cfg.Environment != config.EnvDevelopment {
		logger.Fatal().Msg("BILLING_WEBHOOK_SECRET environment variable is required")
		return 1
	}

	// Audit recorder shared by the vault, the billing processor, and the handlers
	auditor := audit.NewRecorder(database, logger)

	// Credential vault
	vault := credentials.NewVault(database, auditor, cfg.RotationGrace, logger)

	// Entitlement verification cache: Redis when configured, else in-process.
	var cache entitlement.VerificationCache
	if cfg.RedisURL != "" {
		redisCache, err := entitlement.NewRedisCache(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
			return 1
		}
		cache = redisCache
		logger.Info().Msg("Entitlement cache backed by Redis")
	} else {
		cache = entitlement.NewMemoryCache()
		logger.Info().Msg("Entitlement cache in-process (set REDIS_URL to share across replicas)")
	}
	gate := entitlement.NewService(database, cache, logger)

	// Billing webhook processor and outbound processor client. Transitions
	// that revoke entitlement evict the tenant's cached verdict.
	processor := billing.NewProcessor(database, auditor, cfg.PaymentGrace, logger)
	processor.SetEntitlementInvalidator(gate)
	client := billing.NewClient(billing.ClientConfig{
		BaseURL: cfg.BillingAPIURL,
		APIKey:  cfg.BillingAPIKey,
		Timeout: cfg.BillingTimeout,
		Proxy:   cfg.Proxy,
	}, logger)

	// Prometheus metrics
	m := metrics.New()

	// Build API router
	allowedOrigins := strings.Split(os.Getenv("CORS_ORIGINS"), ",")
	if os.Getenv("CORS_ORIGINS") == "" {
		allowedOrigins = []string{}
	}

	rateLimitRequests := int64(100)
	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitRequests = n
		}
	}
	rateLimitPeriod := "1m"
	if v := os.Getenv("RATE_LIMIT_PERIOD"); v != "" {
		rateLimitPeriod = v
	}

	routerCfg := api.Config{
		Environment:       cfg.Environment,
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: rateLimitRequests,
		RateLimitPeriod:   rateLimitPeriod,
		WebhookSecret:     []byte(cfg.WebhookSecret),
		TrialDays:         cfg.TrialDays,
		MaxBodyBytes:      1 << 20,
		Version:           Version,
		Commit:            Commit,
		BuildDate:         BuildDate,
	}

	router, err := api.NewRouter(routerCfg, database, sessions, vault, processor, client, gate, auditor, m, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize router")
		return 1
	}

	// Start HTTP server
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Start grace-period sweep scheduler
	sweepScheduler := maintenance.NewSweepScheduler(vault, cfg.SweepInterval, logger)
	if err := sweepScheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("Failed to start sweep scheduler")
	}
	defer sweepScheduler.Stop()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info().Str("signal", sig.String()).Msg("Shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
		return 1
	}

	logger.Info().Msg("Server stopped gracefully")
	return 0
}
