package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/clearviewcrm/clearview/internal/api/middleware"
	"github.com/clearviewcrm/clearview/internal/credentials"
	"github.com/clearviewcrm/clearview/internal/metrics"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CredentialVault defines the key lifecycle operations the handler exposes.
type CredentialVault interface {
	IssueOrRotate(ctx context.Context, tenantID uuid.UUID, requester *models.User) (*credentials.RotationResult, error)
}

// UserLoader fetches the fresh user record for role checks.
type UserLoader interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// CredentialsHandler handles API key lifecycle HTTP endpoints.
type CredentialsHandler struct {
	vault   CredentialVault
	users   UserLoader
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewCredentialsHandler creates a new CredentialsHandler.
func NewCredentialsHandler(vault CredentialVault, users UserLoader, m *metrics.Metrics, logger zerolog.Logger) *CredentialsHandler {
	return &CredentialsHandler{
		vault:   vault,
		users:   users,
		metrics: m,
		logger:  logger.With().Str("component", "credentials_handler").Logger(),
	}
}

// RegisterRoutes registers credential routes on the given router group.
func (h *CredentialsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/credentials/rotate", h.Rotate)
}

// Rotate issues a fresh API key for the caller's tenant, moving any current
// key into the rotation grace window. The plaintext key appears in this
// response and nowhere else.
// POST /api/v1/credentials/rotate
func (h *CredentialsHandler) Rotate(c *gin.Context) {
	sessionUser := middleware.RequireUser(c)
	if sessionUser == nil {
		return
	}

	// Role comes from the database, not the cookie.
	user, err := h.users.GetUserByID(c.Request.Context(), sessionUser.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", sessionUser.ID.String()).Msg("failed to load user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify requester"})
		return
	}

	result, err := h.vault.IssueOrRotate(c.Request.Context(), user.TenantID, user)
	if err != nil {
		if errors.Is(err, credentials.ErrPermissionDenied) {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin role required to rotate credentials"})
			return
		}
		h.logger.Error().Err(err).Str("tenant_id", user.TenantID.String()).Msg("rotation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rotation failed"})
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveKeyRotation()
	}

	c.JSON(http.StatusOK, result)
}
