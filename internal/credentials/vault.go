// Package credentials manages the lifecycle of tenant API keys: issuance,
// rotation with a bounded dual-key grace window, verification, and the sweep
// that retires expired grace keys.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clearviewcrm/clearview/internal/auth"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrPermissionDenied is returned when the requester may not manage credentials.
var ErrPermissionDenied = errors.New("permission denied")

// Store defines the interface for tenant credential persistence.
type Store interface {
	GetTenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	RotateTenantAPIKey(ctx context.Context, tenantID uuid.UUID, newHash, newPrefix string, graceExpiry time.Time) (*models.Tenant, error)
	SweepExpiredGraceKeys(ctx context.Context) ([]*models.Tenant, error)
}

// Auditor records sensitive credential actions.
type Auditor interface {
	Record(ctx context.Context, entry *models.AuditLog)
}

// RotationResult carries the outcome of an issue-or-rotate operation. Key is
// the plaintext API key, returned exactly once; the vault holds no other copy.
type RotationResult struct {
	Key            string     `json:"api_key"`
	Prefix         string     `json:"api_key_prefix"`
	GraceActive    bool       `json:"grace_active"`
	GraceExpiresAt *time.Time `json:"grace_expires_at,omitempty"`
}

// Vault issues, verifies and rotates tenant API keys. It stores only bcrypt
// hashes; rotation moves the current hash into a grace slot that remains
// verifiable until its expiry.
type Vault struct {
	store   Store
	auditor Auditor
	grace   time.Duration
	logger  zerolog.Logger

	now func() time.Time
}

// NewVault creates a new Vault with the given rotation grace window.
func NewVault(store Store, auditor Auditor, grace time.Duration, logger zerolog.Logger) *Vault {
	return &Vault{
		store:   store,
		auditor: auditor,
		grace:   grace,
		logger:  logger.With().Str("component", "credential_vault").Logger(),
		now:     time.Now,
	}
}

// IssueOrRotate generates a fresh API key for the tenant, persists its hash
// and prefix, and moves any existing key into the grace window. The requester
// must hold an administrative role. Persistence is all-or-nothing: a failed
// write leaves the tenant's credential state unchanged.
func (v *Vault) IssueOrRotate(ctx context.Context, tenantID uuid.UUID, requester *models.User) (*RotationResult, error) {
	if requester == nil || !requester.CanManageBilling() {
		return nil, ErrPermissionDenied
	}

	key, prefix, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashAPIKey(key)
	if err != nil {
		return nil, err
	}

	graceExpiry := v.now().Add(v.grace)
	prev, err := v.store.RotateTenantAPIKey(ctx, tenantID, hash, prefix, graceExpiry)
	if err != nil {
		return nil, fmt.Errorf("rotate tenant %s: %w", tenantID, err)
	}

	result := &RotationResult{Key: key, Prefix: prefix}
	details := fmt.Sprintf("new_prefix=%s", prefix)
	if prev.APIKeyPrefix != nil {
		result.GraceActive = true
		result.GraceExpiresAt = &graceExpiry
		details = fmt.Sprintf("new_prefix=%s old_prefix=%s", prefix, *prev.APIKeyPrefix)
	}

	entry := models.NewAuditLog(tenantID, models.AuditActionKeyRotated, "api_key").
		WithActor(requester.ID).
		WithResource(tenantID).
		WithDetails(details)
	v.auditor.Record(ctx, entry)

	v.logger.Info().
		Str("tenant_id", tenantID.String()).
		Str("prefix", prefix).
		Bool("grace_active", result.GraceActive).
		Msg("api key rotated")

	return result, nil
}

// Verify checks a candidate key against the tenant's current hash, falling
// back to the previous hash while its grace window is open.
func (v *Vault) Verify(ctx context.Context, tenantID uuid.UUID, candidate string) (bool, error) {
	if !auth.IsValidAPIKeyFormat(candidate) {
		return false, nil
	}

	tenant, err := v.store.GetTenantByID(ctx, tenantID)
	if err != nil {
		return false, fmt.Errorf("get tenant %s: %w", tenantID, err)
	}

	if tenant.APIKeyHash != nil && auth.CompareAPIKeyHash(candidate, *tenant.APIKeyHash) {
		return true, nil
	}

	if tenant.GraceKeyValid(v.now()) && auth.CompareAPIKeyHash(candidate, *tenant.OldAPIKeyHash) {
		return true, nil
	}

	return false, nil
}

// SweepExpiredGracePeriods clears every tenant whose previous-key grace window
// has elapsed, emitting one audit entry per cleared tenant. Safe to invoke
// repeatedly; returns the number of tenants cleared.
func (v *Vault) SweepExpiredGracePeriods(ctx context.Context) (int, error) {
	cleared, err := v.store.SweepExpiredGraceKeys(ctx)
	if err != nil {
		return len(cleared), fmt.Errorf("sweep expired grace keys: %w", err)
	}

	for _, tenant := range cleared {
		entry := models.NewAuditLog(tenant.ID, models.AuditActionGraceExpired, "api_key").
			WithResource(tenant.ID)
		if tenant.APIKeyPrefix != nil {
			entry = entry.WithDetails(fmt.Sprintf("current_prefix=%s", *tenant.APIKeyPrefix))
		}
		v.auditor.Record(ctx, entry)
	}

	if len(cleared) > 0 {
		v.logger.Info().Int("cleared", len(cleared)).Msg("expired grace periods swept")
	}

	return len(cleared), nil
}
