package db

import (
	"context"
	"fmt"
	"time"

	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/google/uuid"
)

// AuditLogFilter defines filters for querying audit logs.
type AuditLogFilter struct {
	Action    string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// CreateAuditLog inserts a new audit log entry.
func (db *DB) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO audit_logs (id, tenant_id, actor_id, action, resource_type,
		                        resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, log.ID, log.TenantID, log.ActorID, string(log.Action), log.ResourceType,
		log.ResourceID, log.Details, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// GetAuditLogsByTenantID returns audit logs for a tenant with optional filtering.
func (db *DB) GetAuditLogsByTenantID(ctx context.Context, tenantID uuid.UUID, filter AuditLogFilter) ([]*models.AuditLog, error) {
	query := `
		SELECT id, tenant_id, actor_id, action, resource_type, resource_id, details, created_at
		FROM audit_logs
		WHERE tenant_id = $1
	`
	args := []any{tenantID}
	argIdx := 2

	query, args, argIdx = appendAuditLogFilters(query, args, argIdx, filter)

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var log models.AuditLog
		var actionStr string
		if err := rows.Scan(&log.ID, &log.TenantID, &log.ActorID, &actionStr,
			&log.ResourceType, &log.ResourceID, &log.Details, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		log.Action = models.AuditAction(actionStr)
		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}

	return logs, nil
}

// CountAuditLogsByTenantID returns the count of audit logs for a tenant with optional filtering.
func (db *DB) CountAuditLogsByTenantID(ctx context.Context, tenantID uuid.UUID, filter AuditLogFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM audit_logs WHERE tenant_id = $1`
	args := []any{tenantID}
	argIdx := 2

	query, args, _ = appendAuditLogFilters(query, args, argIdx, filter)

	var count int64
	err := db.Pool.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count audit logs: %w", err)
	}
	return count, nil
}

// appendAuditLogFilters appends WHERE clauses for the given filter to the query.
func appendAuditLogFilters(query string, args []any, argIdx int, filter AuditLogFilter) (string, []any, int) {
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, filter.Action)
		argIdx++
	}
	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}
	return query, args, argIdx
}
