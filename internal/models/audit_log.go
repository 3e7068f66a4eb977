package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action that was audited.
type AuditAction string

const (
	// AuditActionKeyRotated records issuing or rotating a tenant API key.
	AuditActionKeyRotated AuditAction = "api_key_rotated"
	// AuditActionGraceExpired records the sweep clearing an expired previous key.
	AuditActionGraceExpired AuditAction = "api_key_grace_expired"
	// AuditActionStatusChanged records a subscription status transition.
	AuditActionStatusChanged AuditAction = "subscription_status_changed"
	// AuditActionCheckoutStarted records creation of a checkout session.
	AuditActionCheckoutStarted AuditAction = "checkout_started"
	// AuditActionPortalAccessed records creation of a billing portal session.
	AuditActionPortalAccessed AuditAction = "portal_accessed"
)

// AuditLog is an append-only record of a sensitive action.
//
// Details must never contain plaintext secrets or full hashes; key material is
// referenced by its display prefix only. ActorID is nil for system actions
// such as the grace-period sweep.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	TenantID     uuid.UUID   `json:"tenant_id"`
	ActorID      *uuid.UUID  `json:"actor_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   *uuid.UUID  `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NewAuditLog creates a new AuditLog entry.
func NewAuditLog(tenantID uuid.UUID, action AuditAction, resourceType string) *AuditLog {
	return &AuditLog{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Action:       action,
		ResourceType: resourceType,
		CreatedAt:    time.Now(),
	}
}

// WithActor sets the acting user for the audit log.
func (a *AuditLog) WithActor(actorID uuid.UUID) *AuditLog {
	a.ActorID = &actorID
	return a
}

// WithResource sets the resource being acted upon.
func (a *AuditLog) WithResource(resourceID uuid.UUID) *AuditLog {
	a.ResourceID = &resourceID
	return a
}

// WithDetails attaches an opaque detail payload.
func (a *AuditLog) WithDetails(details string) *AuditLog {
	a.Details = details
	return a
}
