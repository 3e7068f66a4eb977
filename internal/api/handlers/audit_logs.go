package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/clearviewcrm/clearview/internal/api/middleware"
	"github.com/clearviewcrm/clearview/internal/db"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuditLogStore defines the interface for audit log read operations.
type AuditLogStore interface {
	GetAuditLogsByTenantID(ctx context.Context, tenantID uuid.UUID, filter db.AuditLogFilter) ([]*models.AuditLog, error)
	CountAuditLogsByTenantID(ctx context.Context, tenantID uuid.UUID, filter db.AuditLogFilter) (int64, error)
}

// AuditLogsHandler handles audit log HTTP endpoints.
type AuditLogsHandler struct {
	store  AuditLogStore
	logger zerolog.Logger
}

// NewAuditLogsHandler creates a new AuditLogsHandler.
func NewAuditLogsHandler(store AuditLogStore, logger zerolog.Logger) *AuditLogsHandler {
	return &AuditLogsHandler{
		store:  store,
		logger: logger.With().Str("component", "audit_logs_handler").Logger(),
	}
}

// RegisterRoutes registers audit log routes on the given router group.
func (h *AuditLogsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit-logs", h.List)
}

// AuditLogListResponse is the response for listing audit logs.
type AuditLogListResponse struct {
	AuditLogs  []*models.AuditLog `json:"audit_logs"`
	TotalCount int64              `json:"total_count"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

// List returns audit logs for the caller's tenant. Super admins may inspect
// any tenant via ?tenant_id.
// GET /api/v1/audit-logs
// Query params: action, start_date, end_date, limit, offset, tenant_id
func (h *AuditLogsHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	tenantID := user.TenantID
	if override := c.Query("tenant_id"); override != "" {
		if user.Role != models.UserRoleSuperAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "super admin required to inspect other tenants"})
			return
		}
		id, err := uuid.Parse(override)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
			return
		}
		tenantID = id
	}

	filter := parseAuditLogFilter(c)

	logs, err := h.store.GetAuditLogsByTenantID(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.logger.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("failed to list audit logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit logs"})
		return
	}

	totalCount, err := h.store.CountAuditLogsByTenantID(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.logger.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("failed to count audit logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count audit logs"})
		return
	}

	c.JSON(http.StatusOK, AuditLogListResponse{
		AuditLogs:  logs,
		TotalCount: totalCount,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// parseAuditLogFilter extracts filter parameters from the query string.
func parseAuditLogFilter(c *gin.Context) db.AuditLogFilter {
	filter := db.AuditLogFilter{
		Action: c.Query("action"),
	}

	if startDate := c.Query("start_date"); startDate != "" {
		if t, err := time.Parse(time.RFC3339, startDate); err == nil {
			filter.StartDate = &t
		} else if t, err := time.Parse("2006-01-02", startDate); err == nil {
			filter.StartDate = &t
		}
	}
	if endDate := c.Query("end_date"); endDate != "" {
		if t, err := time.Parse(time.RFC3339, endDate); err == nil {
			filter.EndDate = &t
		} else if t, err := time.Parse("2006-01-02", endDate); err == nil {
			// Set to end of day
			endOfDay := t.Add(24*time.Hour - time.Second)
			filter.EndDate = &endOfDay
		}
	}

	if limit := c.Query("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if filter.Limit == 0 {
		filter.Limit = 50 // Default limit
	}

	if offset := c.Query("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	return filter
}
