// Package audit provides best-effort recording of sensitive actions.
package audit

import (
	"context"

	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/rs/zerolog"
)

// Store defines the interface for audit log persistence.
type Store interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Recorder writes append-only audit entries. Writes are best-effort: a failed
// write is logged and never blocks the primary operation.
type Recorder struct {
	store  Store
	logger zerolog.Logger
}

// NewRecorder creates a new Recorder.
func NewRecorder(store Store, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Record persists the audit entry. Detail payloads must never contain
// plaintext secrets or full hashes; callers pass key display prefixes only.
func (r *Recorder) Record(ctx context.Context, entry *models.AuditLog) {
	if err := r.store.CreateAuditLog(ctx, entry); err != nil {
		r.logger.Error().
			Err(err).
			Str("tenant_id", entry.TenantID.String()).
			Str("action", string(entry.Action)).
			Msg("failed to write audit log")
		return
	}
	r.logger.Debug().
		Str("tenant_id", entry.TenantID.String()).
		Str("action", string(entry.Action)).
		Msg("audit entry recorded")
}
