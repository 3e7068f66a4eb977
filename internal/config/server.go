// Package config provides configuration management for Clearview.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// ProxyConfig holds egress proxy settings for outbound HTTP calls.
type ProxyConfig struct {
	HTTPProxy   string
	HTTPSProxy  string
	SOCKS5Proxy string
	NoProxy     string
}

// HasProxy reports whether any proxy is configured.
func (p *ProxyConfig) HasProxy() bool {
	return p != nil && (p.HTTPProxy != "" || p.HTTPSProxy != "" || p.SOCKS5Proxy != "")
}

// ServerConfig holds server-level configuration loaded from environment variables.
type ServerConfig struct {
	Environment Environment
	ListenAddr  string

	// WebhookSecret is the shared secret used to verify inbound billing
	// webhook signatures. Required outside development.
	WebhookSecret string

	// SessionSecret signs the entitlement verification cookie.
	SessionSecret string

	// RedisURL enables the server-side revocable entitlement cache when set.
	RedisURL string

	// BillingAPIURL and BillingAPIKey configure the outbound payment
	// processor client.
	BillingAPIURL string
	BillingAPIKey string

	// BillingTimeout bounds every outbound payment processor call.
	BillingTimeout time.Duration

	// RotationGrace is how long a rotated-out API key remains valid.
	RotationGrace time.Duration

	// PaymentGrace is how long past_due tenants retain access after a
	// failed payment.
	PaymentGrace time.Duration

	// SweepInterval is how often the grace-period sweep runs.
	SweepInterval time.Duration

	// TrialDays is the trial length granted to never-billed tenants.
	TrialDays int

	// Proxy routes outbound payment processor calls through an egress proxy.
	Proxy *ProxyConfig
}

// LoadServerConfig reads server configuration from environment variables.
func LoadServerConfig() ServerConfig {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	trialDays := getEnvInt("TRIAL_DAYS", 14)
	if trialDays < 0 {
		trialDays = 14
	}

	return ServerConfig{
		Environment:    env,
		ListenAddr:     getEnvString("LISTEN_ADDR", ":8080"),
		WebhookSecret:  os.Getenv("BILLING_WEBHOOK_SECRET"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		RedisURL:       os.Getenv("REDIS_URL"),
		BillingAPIURL:  getEnvString("BILLING_API_URL", "https://api.billing.example.com"),
		BillingAPIKey:  os.Getenv("BILLING_API_KEY"),
		BillingTimeout: getEnvDuration("BILLING_TIMEOUT_SECONDS", 10*time.Second),
		RotationGrace:  getEnvDuration("ROTATION_GRACE_MINUTES", 60*time.Minute),
		PaymentGrace:   getEnvDuration("PAYMENT_GRACE_HOURS", 72*time.Hour),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL_MINUTES", 5*time.Minute),
		TrialDays:      trialDays,
		Proxy:          loadProxyConfig(),
	}
}

func loadProxyConfig() *ProxyConfig {
	p := &ProxyConfig{
		HTTPProxy:   os.Getenv("HTTP_PROXY"),
		HTTPSProxy:  os.Getenv("HTTPS_PROXY"),
		SOCKS5Proxy: os.Getenv("SOCKS5_PROXY"),
		NoProxy:     os.Getenv("NO_PROXY"),
	}
	if !p.HasProxy() {
		return nil
	}
	return p
}

// getEnvString reads a string from an environment variable, returning the default if unset.
func getEnvString(key, defaultVal string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvDuration reads an integer count of the unit implied by the key suffix
// (SECONDS, MINUTES or HOURS), returning the default if unset or invalid.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	switch {
	case strings.HasSuffix(key, "_SECONDS"):
		return time.Duration(n) * time.Second
	case strings.HasSuffix(key, "_MINUTES"):
		return time.Duration(n) * time.Minute
	case strings.HasSuffix(key, "_HOURS"):
		return time.Duration(n) * time.Hour
	default:
		return defaultVal
	}
}
