// Package api provides the HTTP API for the Clearview server.
package api

import (
	"github.com/clearviewcrm/clearview/internal/api/handlers"
	"github.com/clearviewcrm/clearview/internal/api/middleware"
	"github.com/clearviewcrm/clearview/internal/auth"
	"github.com/clearviewcrm/clearview/internal/billing"
	"github.com/clearviewcrm/clearview/internal/config"
	"github.com/clearviewcrm/clearview/internal/credentials"
	"github.com/clearviewcrm/clearview/internal/db"
	"github.com/clearviewcrm/clearview/internal/entitlement"
	"github.com/clearviewcrm/clearview/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Config holds configuration for the API router.
type Config struct {
	// Environment gates CORS strictness.
	Environment config.Environment
	// AllowedOrigins for CORS. Empty means all origins allowed in dev mode.
	AllowedOrigins []string
	// RateLimitRequests is the number of requests allowed per period.
	RateLimitRequests int64
	// RateLimitPeriod is the duration string for rate limiting (e.g. "1m", "1h").
	RateLimitPeriod string
	// WebhookSecret verifies inbound billing webhook signatures.
	WebhookSecret []byte
	// TrialDays is the trial length offered to never-billed tenants at checkout.
	TrialDays int
	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64
	// Version information for the version endpoint.
	Version   string
	Commit    string
	BuildDate string
}

// DefaultConfig returns a Config with sensible defaults for development.
func DefaultConfig() Config {
	return Config{
		Environment:       config.EnvDevelopment,
		AllowedOrigins:    []string{},
		RateLimitRequests: 100,
		RateLimitPeriod:   "1m",
		TrialDays:         14,
		MaxBodyBytes:      1 << 20,
		Version:           "dev",
		Commit:            "unknown",
		BuildDate:         "unknown",
	}
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine *gin.Engine
	logger zerolog.Logger
}

// NewRouter creates a new Router with the given dependencies.
func NewRouter(
	cfg Config,
	database *db.DB,
	sessions *auth.SessionStore,
	vault *credentials.Vault,
	processor *billing.Processor,
	client *billing.Client,
	gate *entitlement.Service,
	auditor handlers.Auditor,
	m *metrics.Metrics,
	logger zerolog.Logger,
) (*Router, error) {
	r := &Router{
		Engine: gin.New(),
		logger: logger.With().Str("component", "router").Logger(),
	}

	// Global middleware
	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))
	r.Engine.Use(middleware.RequestMetrics(m))
	r.Engine.Use(middleware.SecurityHeaders())
	r.Engine.Use(middleware.CORS(cfg.AllowedOrigins, cfg.Environment))
	r.Engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	// Rate limiting
	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(rateLimiter)

	// Health check endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(database, logger)
	healthHandler.RegisterPublicRoutes(r.Engine)

	// Version endpoint (no auth required)
	versionHandler := handlers.NewVersionHandler(cfg.Version, cfg.Commit, cfg.BuildDate, logger)
	versionHandler.RegisterPublicRoutes(r.Engine)

	// Prometheus exposition (no auth required)
	r.Engine.GET("/metrics", gin.WrapH(m.Handler()))

	// Billing webhook (signature-authenticated)
	webhookHandler := handlers.NewWebhookHandler(processor, cfg.WebhookSecret, m, logger)
	webhookHandler.RegisterPublicRoutes(r.Engine)

	// Session bootstrap (API key auth: the key proves the tenant)
	authHandler := handlers.NewAuthHandler(database, sessions, logger)
	keyAuth := r.Engine.Group("/auth")
	keyAuth.Use(middleware.APIKeyMiddleware(database, vault, logger))
	authHandler.RegisterKeyRoutes(keyAuth)

	sessionAuth := r.Engine.Group("/auth")
	sessionAuth.Use(middleware.AuthMiddleware(sessions, logger))
	authHandler.RegisterSessionRoutes(sessionAuth)

	// API v1 routes (session auth required)
	apiV1 := r.Engine.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(sessions, logger))

	credentialsHandler := handlers.NewCredentialsHandler(vault, database, m, logger)
	credentialsHandler.RegisterRoutes(apiV1)

	billingHandler := handlers.NewBillingHandler(database, client, auditor, cfg.TrialDays, logger)
	billingHandler.RegisterRoutes(apiV1)

	entitlementHandler := handlers.NewEntitlementHandler(gate, database, m, logger)
	entitlementHandler.RegisterRoutes(apiV1)

	auditLogsHandler := handlers.NewAuditLogsHandler(database, logger)
	auditLogsHandler.RegisterRoutes(apiV1)

	maintenanceHandler := handlers.NewMaintenanceHandler(vault, m, logger)
	maintenanceHandler.RegisterRoutes(apiV1)

	r.logger.Info().Msg("API router initialized")
	return r, nil
}
