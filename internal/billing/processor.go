package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrUnknownCustomer is returned when an event references a billing customer
// no tenant is attached to.
var ErrUnknownCustomer = errors.New("no tenant for billing customer")

// Store defines the persistence interface for event processing.
type Store interface {
	GetTenantByBillingCustomerID(ctx context.Context, customerID string) (*models.Tenant, error)
	ApplyBillingEvent(ctx context.Context, event *models.ProcessedEvent, tenantID uuid.UUID, tr models.BillingTransition, paymentGrace time.Duration) (alreadyProcessed bool, prevStatus models.SubscriptionStatus, err error)
}

// Auditor records subscription status changes.
type Auditor interface {
	Record(ctx context.Context, entry *models.AuditLog)
}

// EntitlementInvalidator evicts a tenant's cached entitlement verdict.
type EntitlementInvalidator interface {
	InvalidateTenant(ctx context.Context, tenantID uuid.UUID)
}

// Processor applies external billing events to tenant subscription state.
// The event ledger claim and the status write happen in one transaction, so an
// event is either fully applied or not recorded at all.
type Processor struct {
	store        Store
	auditor      Auditor
	invalidator  EntitlementInvalidator
	paymentGrace time.Duration
	logger       zerolog.Logger
}

// NewProcessor creates a new event Processor.
func NewProcessor(store Store, auditor Auditor, paymentGrace time.Duration, logger zerolog.Logger) *Processor {
	return &Processor{
		store:        store,
		auditor:      auditor,
		paymentGrace: paymentGrace,
		logger:       logger.With().Str("component", "billing_processor").Logger(),
	}
}

// SetEntitlementInvalidator wires cache eviction for status transitions that
// revoke entitlement. Without it, a cached "entitled" verdict would outlive a
// cancellation for the remainder of its TTL.
func (p *Processor) SetEntitlementInvalidator(inv EntitlementInvalidator) {
	p.invalidator = inv
}

// ProcessEvent applies one billing event. Duplicate deliveries of the same
// event id are no-ops. Unknown event types are logged and skipped without
// error. Events are delivered at least once and out of order; the ledger and
// the per-tenant row lock make application at-most-once and serialized.
func (p *Processor) ProcessEvent(ctx context.Context, event *Event) error {
	log := p.logger.With().Str("event_id", event.ID).Str("event_type", string(event.Type)).Logger()

	tr, handled := Transition(event)
	if !handled {
		log.Info().Str("status", event.Status).Msg("ignoring unhandled billing event")
		return nil
	}

	if event.CustomerID == "" {
		return fmt.Errorf("event %s: missing customer id", event.ID)
	}
	tenant, err := p.store.GetTenantByBillingCustomerID(ctx, event.CustomerID)
	if err != nil {
		return fmt.Errorf("event %s: %w: %s", event.ID, ErrUnknownCustomer, event.CustomerID)
	}

	already, prevStatus, err := p.store.ApplyBillingEvent(ctx, &models.ProcessedEvent{
		EventID:     event.ID,
		EventType:   event.Type,
		ProcessedAt: time.Now(),
	}, tenant.ID, tr, p.paymentGrace)
	if err != nil {
		return fmt.Errorf("apply event %s: %w", event.ID, err)
	}
	if already {
		log.Info().Msg("billing event already processed, skipping")
		return nil
	}

	// Revocations take effect on the next check, not after the cache TTL.
	if p.invalidator != nil && !tr.NewStatus.IsEntitled() {
		p.invalidator.InvalidateTenant(ctx, tenant.ID)
	}

	entry := models.NewAuditLog(tenant.ID, models.AuditActionStatusChanged, "subscription").
		WithResource(tenant.ID).
		WithDetails(fmt.Sprintf("event=%s from=%s to=%s", event.ID, prevStatus, tr.NewStatus))
	p.auditor.Record(ctx, entry)

	log.Info().
		Str("tenant_id", tenant.ID.String()).
		Str("from", string(prevStatus)).
		Str("to", string(tr.NewStatus)).
		Msg("subscription status transitioned")

	return nil
}
