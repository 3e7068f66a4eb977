package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/clearviewcrm/clearview/internal/api/middleware"
	"github.com/clearviewcrm/clearview/internal/auth"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthStore defines the user lookup needed for session bootstrap.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthHandler exchanges a tenant API key plus a user email for a session
// cookie. Identity federation is handled upstream; the key proves control of
// the tenant, the email selects the acting user within it.
type AuthHandler struct {
	store    AuthStore
	sessions *auth.SessionStore
	logger   zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, sessions *auth.SessionStore, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		store:    store,
		sessions: sessions,
		logger:   logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterKeyRoutes registers routes that require API key authentication.
func (h *AuthHandler) RegisterKeyRoutes(r *gin.RouterGroup) {
	r.POST("/session", h.CreateSession)
}

// RegisterSessionRoutes registers routes that require a session.
func (h *AuthHandler) RegisterSessionRoutes(r *gin.RouterGroup) {
	r.DELETE("/session", h.DestroySession)
}

// CreateSessionRequest is the body for session bootstrap.
type CreateSessionRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// CreateSession issues a session cookie for a user of the key-proven tenant.
// POST /auth/session
func (h *AuthHandler) CreateSession(c *gin.Context) {
	tenant := middleware.RequireTenant(c)
	if tenant == nil {
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid email is required"})
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil || user.TenantID != tenant.ID {
		// Same response for unknown email and wrong tenant.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user for tenant"})
		return
	}

	sessionUser := &auth.SessionUser{
		ID:              user.ID,
		TenantID:        user.TenantID,
		Email:           user.Email,
		Role:            user.Role,
		AuthenticatedAt: time.Now(),
	}
	if err := h.sessions.SetUser(c.Request, c.Writer, sessionUser); err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to set session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	h.logger.Info().
		Str("user_id", user.ID.String()).
		Str("tenant_id", tenant.ID.String()).
		Msg("session created")

	c.JSON(http.StatusCreated, gin.H{
		"user_id":   user.ID,
		"tenant_id": user.TenantID,
		"role":      user.Role,
	})
}

// DestroySession clears the caller's session.
// DELETE /auth/session
func (h *AuthHandler) DestroySession(c *gin.Context) {
	if err := h.sessions.ClearUser(c.Request, c.Writer); err != nil {
		h.logger.Warn().Err(err).Msg("failed to clear session")
	}
	c.Status(http.StatusNoContent)
}
