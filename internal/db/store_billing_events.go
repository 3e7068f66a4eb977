package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// claimEvent inserts the ledger row for an event inside the given transaction.
// Returns true if the event was already claimed by an earlier delivery.
func claimEvent(ctx context.Context, tx pgx.Tx, event *models.ProcessedEvent) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO billing_events (event_id, event_type, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING
	`, event.EventID, string(event.EventType), event.ProcessedAt)
	if err != nil {
		return false, fmt.Errorf("claim billing event: %w", err)
	}
	return tag.RowsAffected() == 0, nil
}

// ClaimEvent records an external billing event in the idempotency ledger.
// Returns true if the event had already been processed; the caller must then
// skip all side effects.
func (db *DB) ClaimEvent(ctx context.Context, eventID string, eventType models.BillingEventType) (bool, error) {
	var already bool
	err := db.ExecTx(ctx, func(tx pgx.Tx) error {
		var err error
		already, err = claimEvent(ctx, tx, &models.ProcessedEvent{
			EventID:     eventID,
			EventType:   eventType,
			ProcessedAt: time.Now(),
		})
		return err
	})
	if err != nil {
		return false, err
	}
	return already, nil
}

// ApplyBillingEvent claims the event in the ledger and applies the computed
// transition to the tenant inside a single transaction. The tenant row is
// locked so concurrent events for the same tenant serialize. If the event was
// already claimed the transition is skipped and alreadyProcessed is true.
// Returns the tenant's status before the transition for audit purposes.
func (db *DB) ApplyBillingEvent(ctx context.Context, event *models.ProcessedEvent, tenantID uuid.UUID, tr models.BillingTransition, paymentGrace time.Duration) (alreadyProcessed bool, prevStatus models.SubscriptionStatus, err error) {
	err = db.ExecTx(ctx, func(tx pgx.Tx) error {
		already, err := claimEvent(ctx, tx, event)
		if err != nil {
			return err
		}
		if already {
			alreadyProcessed = true
			return nil
		}

		row := tx.QueryRow(ctx, `
			SELECT `+tenantColumns+`
			FROM tenants
			WHERE id = $1
			FOR UPDATE
		`, tenantID)
		tenant, err := scanTenant(row)
		if err != nil {
			return err
		}
		prevStatus = tenant.SubscriptionStatus

		var graceExpiry *time.Time
		switch {
		case tr.StartPaymentGrace:
			expiry := time.Now().Add(paymentGrace)
			graceExpiry = &expiry
		case tr.ClearPaymentGrace:
			graceExpiry = nil
		default:
			graceExpiry = tenant.GraceExpiresAt
		}

		customerID := tenant.BillingCustomerID
		if tr.AttachCustomerID != "" && customerID == nil {
			customerID = &tr.AttachCustomerID
		}

		_, err = tx.Exec(ctx, `
			UPDATE tenants
			SET subscription_status = $2,
			    grace_expires_at = $3,
			    billing_customer_id = $4,
			    updated_at = NOW()
			WHERE id = $1
		`, tenantID, string(tr.NewStatus), graceExpiry, customerID)
		if err != nil {
			return fmt.Errorf("apply billing transition: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, "", err
	}
	return alreadyProcessed, prevStatus, nil
}

// GetProcessedEvent returns a ledger row by external event id.
func (db *DB) GetProcessedEvent(ctx context.Context, eventID string) (*models.ProcessedEvent, error) {
	var e models.ProcessedEvent
	var typeStr string
	err := db.Pool.QueryRow(ctx, `
		SELECT event_id, event_type, processed_at
		FROM billing_events
		WHERE event_id = $1
	`, eventID).Scan(&e.EventID, &typeStr, &e.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get processed event: %w", err)
	}
	e.EventType = models.BillingEventType(typeStr)
	return &e, nil
}
