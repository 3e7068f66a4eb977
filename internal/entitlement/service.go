package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clearviewcrm/clearview/internal/db"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is the subset of tenant persistence the service needs.
type Store interface {
	GetTenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// Service answers entitlement checks, reusing recent "entitled" verdicts from
// the verification cache before falling back to the decision table.
type Service struct {
	store  Store
	cache  VerificationCache
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates an entitlement service.
func NewService(store Store, cache VerificationCache, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "entitlement").Logger(),
		now:    time.Now,
	}
}

// Check evaluates whether the user may access subscription-protected
// resources of the given tenant.
//
// A valid cached verification short-circuits the tenant lookup, but only for
// verdicts the gate marked cacheable; grace-window allowances and all denials
// are recomputed every time. Cache failures degrade to a fresh evaluation.
func (s *Service) Check(ctx context.Context, tenantID uuid.UUID, user *models.User, requiresSubscription bool) (Decision, error) {
	now := s.now()

	if user != nil && requiresSubscription && !user.IsSuperAdmin() {
		cached, err := s.cache.Get(ctx, tenantID)
		if err != nil {
			s.logger.Warn().Err(err).Str("tenant_id", tenantID.String()).Msg("verification cache read failed")
		} else if cached.Valid(tenantID, now) && cached.Status.IsEntitled() {
			return Decision{Allowed: true, Reason: string(cached.Status)}, nil
		}
	}

	tenant, err := s.store.GetTenantByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			tenant = nil
		} else {
			// A lookup failure must fail closed, not grant access.
			return Decision{}, fmt.Errorf("load tenant: %w", err)
		}
	}

	decision := Evaluate(tenant, user, requiresSubscription, now)

	switch {
	case decision.RefreshCache:
		v := &Verification{TenantID: tenantID, Status: tenant.SubscriptionStatus, VerifiedAt: now}
		if err := s.cache.Set(ctx, v); err != nil {
			s.logger.Warn().Err(err).Str("tenant_id", tenantID.String()).Msg("verification cache write failed")
		}
	case decision.InvalidateCache:
		if err := s.cache.Invalidate(ctx, tenantID); err != nil {
			s.logger.Warn().Err(err).Str("tenant_id", tenantID.String()).Msg("verification cache invalidation failed")
		}
	}

	return decision, nil
}

// InvalidateTenant evicts any cached verification, used when a billing event
// changes the tenant's status out-of-band.
func (s *Service) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		s.logger.Warn().Err(err).Str("tenant_id", tenantID.String()).Msg("verification cache invalidation failed")
	}
}
