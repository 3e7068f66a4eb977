// Package middleware provides HTTP middleware for the Clearview API.
package middleware

import (
	"net/http"

	"github.com/clearviewcrm/clearview/internal/auth"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by this package.
type ContextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey ContextKey = "user"
	// TenantContextKey is the context key for the API-key-authenticated tenant.
	TenantContextKey ContextKey = "tenant"
)

// AuthMiddleware returns a Gin middleware that requires a session user.
func AuthMiddleware(sessions *auth.SessionStore, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "auth_middleware").Logger()

	return func(c *gin.Context) {
		sessionUser, err := sessions.GetUser(c.Request)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("unauthenticated request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "redirect": "login"})
			return
		}

		c.Set(string(UserContextKey), sessionUser)

		log.Debug().
			Str("user_id", sessionUser.ID.String()).
			Str("path", c.Request.URL.Path).
			Msg("authenticated request")

		c.Next()
	}
}

// GetUser retrieves the authenticated user from the Gin context.
// Returns nil if no user is authenticated.
func GetUser(c *gin.Context) *auth.SessionUser {
	user, exists := c.Get(string(UserContextKey))
	if !exists {
		return nil
	}
	sessionUser, ok := user.(*auth.SessionUser)
	if !ok {
		return nil
	}
	return sessionUser
}

// RequireUser is a helper that gets the authenticated user or aborts with 401.
// Use this in handlers that expect AuthMiddleware to have already run.
func RequireUser(c *gin.Context) *auth.SessionUser {
	user := GetUser(c)
	if user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "redirect": "login"})
		return nil
	}
	return user
}

// RequireSuperAdmin gets the authenticated user and aborts with 403 unless the
// user is a platform operator.
func RequireSuperAdmin(c *gin.Context) *auth.SessionUser {
	user := RequireUser(c)
	if user == nil {
		return nil
	}
	if user.Role != models.UserRoleSuperAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "super admin required"})
		return nil
	}
	return user
}

// GetTenant retrieves the API-key-authenticated tenant from the Gin context.
// Returns nil if no tenant is authenticated.
func GetTenant(c *gin.Context) *models.Tenant {
	tenant, exists := c.Get(string(TenantContextKey))
	if !exists {
		return nil
	}
	t, ok := tenant.(*models.Tenant)
	if !ok {
		return nil
	}
	return t
}

// RequireTenant is a helper that gets the authenticated tenant or aborts with
// 401. Use this in handlers that expect APIKeyMiddleware to have already run.
func RequireTenant(c *gin.Context) *models.Tenant {
	tenant := GetTenant(c)
	if tenant == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant authentication required"})
		return nil
	}
	return tenant
}
