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

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

const tenantColumns = `id, name, subscription_status, billing_customer_id, trial_ends_at,
	       grace_expires_at, api_key_hash, api_key_prefix, old_api_key_hash,
	       old_api_key_expires_at, created_at, updated_at`

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	var statusStr string
	err := row.Scan(
		&t.ID, &t.Name, &statusStr, &t.BillingCustomerID, &t.TrialEndsAt,
		&t.GraceExpiresAt, &t.APIKeyHash, &t.APIKeyPrefix, &t.OldAPIKeyHash,
		&t.OldAPIKeyExpiresAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	t.SubscriptionStatus = models.SubscriptionStatus(statusStr)
	return &t, nil
}

// CreateTenant creates a new tenant.
func (db *DB) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO tenants (id, name, subscription_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, tenant.ID, tenant.Name, string(tenant.SubscriptionStatus), tenant.CreatedAt, tenant.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

// GetTenantByID returns a tenant by its ID.
func (db *DB) GetTenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE id = $1
	`, id)
	return scanTenant(row)
}

// GetTenantByBillingCustomerID returns the tenant attached to the given
// external billing customer.
func (db *DB) GetTenantByBillingCustomerID(ctx context.Context, customerID string) (*models.Tenant, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE billing_customer_id = $1
	`, customerID)
	return scanTenant(row)
}

// GetTenantsByAPIKeyPrefix returns tenants whose current or previous key
// carries the given display prefix. The prefix is not guaranteed unique, so
// callers must verify the candidate key against each returned tenant.
func (db *DB) GetTenantsByAPIKeyPrefix(ctx context.Context, prefix string) ([]*models.Tenant, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE api_key_prefix = $1
	`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get tenants by key prefix: %w", err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenants: %w", err)
	}
	return tenants, nil
}

// AttachBillingCustomer sets the external billing customer id for a tenant if
// none is set yet. The id is set once and never overwritten.
func (db *DB) AttachBillingCustomer(ctx context.Context, tenantID uuid.UUID, customerID string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE tenants
		SET billing_customer_id = $2, updated_at = NOW()
		WHERE id = $1 AND billing_customer_id IS NULL
	`, tenantID, customerID)
	if err != nil {
		return fmt.Errorf("attach billing customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		db.logger.Debug().
			Str("tenant_id", tenantID.String()).
			Msg("billing customer already attached, leaving existing id")
	}
	return nil
}

// RotateTenantAPIKey atomically installs a new API key hash and prefix for the
// tenant, moving any existing hash into the grace slot expiring at graceExpiry.
// The tenant row is locked for the duration so concurrent rotations serialize.
// Returns the tenant as it was before the rotation.
func (db *DB) RotateTenantAPIKey(ctx context.Context, tenantID uuid.UUID, newHash, newPrefix string, graceExpiry time.Time) (*models.Tenant, error) {
	var prev *models.Tenant
	err := db.ExecTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT `+tenantColumns+`
			FROM tenants
			WHERE id = $1
			FOR UPDATE
		`, tenantID)
		t, err := scanTenant(row)
		if err != nil {
			return err
		}
		prev = t

		var oldHash *string
		var oldExpiry *time.Time
		if t.APIKeyHash != nil {
			expiry := graceExpiry
			oldHash = t.APIKeyHash
			oldExpiry = &expiry
		}

		_, err = tx.Exec(ctx, `
			UPDATE tenants
			SET api_key_hash = $2,
			    api_key_prefix = $3,
			    old_api_key_hash = $4,
			    old_api_key_expires_at = $5,
			    updated_at = NOW()
			WHERE id = $1
		`, tenantID, newHash, newPrefix, oldHash, oldExpiry)
		if err != nil {
			return fmt.Errorf("rotate tenant api key: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prev, nil
}

// SweepExpiredGraceKeys clears the previous-key hash and expiry for every
// tenant whose grace window has elapsed. Each tenant is cleared in its own
// row-locked transaction so the sweep never races a concurrent rotation on the
// same tenant. Returns the tenants that were cleared.
func (db *DB) SweepExpiredGraceKeys(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id
		FROM tenants
		WHERE old_api_key_hash IS NOT NULL AND old_api_key_expires_at <= NOW()
	`)
	if err != nil {
		return nil, fmt.Errorf("find expired grace keys: %w", err)
	}

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired grace keys: %w", err)
	}

	var cleared []*models.Tenant
	for _, id := range ids {
		err := db.ExecTx(ctx, func(tx pgx.Tx) error {
			row := tx.QueryRow(ctx, `
				SELECT `+tenantColumns+`
				FROM tenants
				WHERE id = $1
				FOR UPDATE
			`, id)
			t, err := scanTenant(row)
			if err != nil {
				return err
			}

			// Re-check under lock: a rotation may have refreshed the window.
			if t.OldAPIKeyHash == nil || t.OldAPIKeyExpiresAt == nil || t.OldAPIKeyExpiresAt.After(time.Now()) {
				return nil
			}

			_, err = tx.Exec(ctx, `
				UPDATE tenants
				SET old_api_key_hash = NULL,
				    old_api_key_expires_at = NULL,
				    updated_at = NOW()
				WHERE id = $1
			`, id)
			if err != nil {
				return fmt.Errorf("clear expired grace key: %w", err)
			}
			cleared = append(cleared, t)
			return nil
		})
		if err != nil {
			return cleared, err
		}
	}

	return cleared, nil
}
