package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadServerConfig_DefaultEnvironment(t *testing.T) {
	os.Unsetenv("ENV")
	cfg := LoadServerConfig()
	if cfg.Environment != EnvDevelopment {
		t.Errorf("expected %q, got %q", EnvDevelopment, cfg.Environment)
	}
}

func TestLoadServerConfig_InvalidEnvironment(t *testing.T) {
	t.Setenv("ENV", "invalid")
	cfg := LoadServerConfig()
	if cfg.Environment != EnvDevelopment {
		t.Errorf("expected %q for invalid ENV, got %q", EnvDevelopment, cfg.Environment)
	}
}

func TestLoadServerConfig_ValidEnvironments(t *testing.T) {
	tests := []struct {
		env  string
		want Environment
	}{
		{"development", EnvDevelopment},
		{"staging", EnvStaging},
		{"production", EnvProduction},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("ENV", tt.env)
			cfg := LoadServerConfig()
			if cfg.Environment != tt.want {
				t.Errorf("expected %q, got %q", tt.want, cfg.Environment)
			}
		})
	}
}

func TestLoadServerConfig_GraceDefaults(t *testing.T) {
	os.Unsetenv("ROTATION_GRACE_MINUTES")
	os.Unsetenv("PAYMENT_GRACE_HOURS")
	cfg := LoadServerConfig()
	if cfg.RotationGrace != 60*time.Minute {
		t.Errorf("expected 60m rotation grace, got %s", cfg.RotationGrace)
	}
	if cfg.PaymentGrace != 72*time.Hour {
		t.Errorf("expected 72h payment grace, got %s", cfg.PaymentGrace)
	}
	if cfg.TrialDays != 14 {
		t.Errorf("expected 14 trial days, got %d", cfg.TrialDays)
	}
}

func TestLoadServerConfig_DurationOverrides(t *testing.T) {
	t.Setenv("ROTATION_GRACE_MINUTES", "30")
	t.Setenv("PAYMENT_GRACE_HOURS", "24")
	t.Setenv("BILLING_TIMEOUT_SECONDS", "5")
	cfg := LoadServerConfig()
	if cfg.RotationGrace != 30*time.Minute {
		t.Errorf("expected 30m rotation grace, got %s", cfg.RotationGrace)
	}
	if cfg.PaymentGrace != 24*time.Hour {
		t.Errorf("expected 24h payment grace, got %s", cfg.PaymentGrace)
	}
	if cfg.BillingTimeout != 5*time.Second {
		t.Errorf("expected 5s billing timeout, got %s", cfg.BillingTimeout)
	}
}

func TestLoadServerConfig_InvalidDurations(t *testing.T) {
	t.Setenv("ROTATION_GRACE_MINUTES", "not-a-number")
	t.Setenv("PAYMENT_GRACE_HOURS", "-3")
	cfg := LoadServerConfig()
	if cfg.RotationGrace != 60*time.Minute {
		t.Errorf("expected default rotation grace for invalid value, got %s", cfg.RotationGrace)
	}
	if cfg.PaymentGrace != 72*time.Hour {
		t.Errorf("expected default payment grace for negative value, got %s", cfg.PaymentGrace)
	}
}
