// Package models defines the domain models for Clearview.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents a clinic account: the unit of billing and isolation.
//
// The key fields hold only one-way hashes. OldAPIKeyHash is non-nil exactly
// while OldAPIKeyExpiresAt is non-nil; together they form the rotation grace
// window during which the prior key still verifies.
type Tenant struct {
	ID                 uuid.UUID          `json:"id"`
	Name               string             `json:"name"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	BillingCustomerID  *string            `json:"billing_customer_id,omitempty"`
	TrialEndsAt        *time.Time         `json:"trial_ends_at,omitempty"`
	GraceExpiresAt     *time.Time         `json:"grace_expires_at,omitempty"`
	APIKeyHash         *string            `json:"-"`
	APIKeyPrefix       *string            `json:"api_key_prefix,omitempty"`
	OldAPIKeyHash      *string            `json:"-"`
	OldAPIKeyExpiresAt *time.Time         `json:"old_api_key_expires_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewTenant creates a new Tenant. Tenants start unbilled.
func NewTenant(name string) *Tenant {
	now := time.Now()
	return &Tenant{
		ID:                 uuid.New(),
		Name:               name,
		SubscriptionStatus: SubscriptionInactive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// HasAPIKey returns true if the tenant has ever been issued an API key.
func (t *Tenant) HasAPIKey() bool {
	return t.APIKeyHash != nil
}

// GraceKeyValid returns true if a previous API key exists and its grace window
// has not elapsed at the given instant.
func (t *Tenant) GraceKeyValid(now time.Time) bool {
	return t.OldAPIKeyHash != nil && t.OldAPIKeyExpiresAt != nil && now.Before(*t.OldAPIKeyExpiresAt)
}

// InPaymentGrace returns true if the tenant is past_due but still within the
// payment-failure grace window at the given instant.
func (t *Tenant) InPaymentGrace(now time.Time) bool {
	if t.SubscriptionStatus != SubscriptionPastDue {
		return false
	}
	return t.GraceExpiresAt != nil && now.Before(*t.GraceExpiresAt)
}
