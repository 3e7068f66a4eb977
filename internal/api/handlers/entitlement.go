package handlers

import (
	"context"
	"net/http"

	"github.com/clearviewcrm/clearview/internal/api/middleware"
	"github.com/clearviewcrm/clearview/internal/entitlement"
	"github.com/clearviewcrm/clearview/internal/metrics"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EntitlementChecker evaluates the gate for a tenant and user.
type EntitlementChecker interface {
	Check(ctx context.Context, tenantID uuid.UUID, user *models.User, requiresSubscription bool) (entitlement.Decision, error)
}

// EntitlementHandler answers "may this caller use protected features".
type EntitlementHandler struct {
	checker EntitlementChecker
	users   UserLoader
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewEntitlementHandler creates a new EntitlementHandler.
func NewEntitlementHandler(checker EntitlementChecker, users UserLoader, m *metrics.Metrics, logger zerolog.Logger) *EntitlementHandler {
	return &EntitlementHandler{
		checker: checker,
		users:   users,
		metrics: m,
		logger:  logger.With().Str("component", "entitlement_handler").Logger(),
	}
}

// RegisterRoutes registers entitlement routes on the given router group.
func (h *EntitlementHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/entitlement", h.Check)
}

// Check evaluates the entitlement gate for the calling user's tenant.
// GET /api/v1/entitlement
func (h *EntitlementHandler) Check(c *gin.Context) {
	sessionUser := middleware.RequireUser(c)
	if sessionUser == nil {
		return
	}

	// Role and membership come from the database, not the cookie.
	user, err := h.users.GetUserByID(c.Request.Context(), sessionUser.ID)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", sessionUser.ID.String()).Msg("session user not found")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "redirect": "login"})
		return
	}

	decision, err := h.checker.Check(c.Request.Context(), user.TenantID, user, true)
	if err != nil {
		h.logger.Error().Err(err).Str("tenant_id", user.TenantID.String()).Msg("entitlement check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "entitlement check unavailable"})
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveEntitlementDecision(decision.Allowed)
	}

	status := http.StatusOK
	if !decision.Allowed {
		status = http.StatusPaymentRequired
		if decision.Redirect == entitlement.RedirectLogin {
			status = http.StatusUnauthorized
		}
	}
	c.JSON(status, decision)
}
