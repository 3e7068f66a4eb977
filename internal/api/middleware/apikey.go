package middleware

import (
	"context"
	"net/http"

	"github.com/clearviewcrm/clearview/internal/auth"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TenantLookup narrows candidate tenants by key display prefix. Hashes are
// salted, so a direct hash lookup is impossible; the prefix keeps the number
// of bcrypt comparisons per request small.
type TenantLookup interface {
	GetTenantsByAPIKeyPrefix(ctx context.Context, prefix string) ([]*models.Tenant, error)
}

// KeyVerifier checks a candidate key against a tenant's stored hashes,
// including the rotation grace key while its window is open.
type KeyVerifier interface {
	Verify(ctx context.Context, tenantID uuid.UUID, candidate string) (bool, error)
}

// APIKeyMiddleware returns a Gin middleware that authenticates requests using
// tenant API keys presented as bearer tokens.
func APIKeyMiddleware(lookup TenantLookup, verifier KeyVerifier, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "apikey_middleware").Logger()

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Debug().Str("path", c.Request.URL.Path).Msg("missing authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		apiKey := auth.ExtractBearerToken(authHeader)
		if !auth.IsValidAPIKeyFormat(apiKey) {
			log.Debug().Str("path", c.Request.URL.Path).Msg("malformed API key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		candidates, err := lookup.GetTenantsByAPIKeyPrefix(c.Request.Context(), auth.DisplayPrefix(apiKey))
		if err != nil {
			log.Error().Err(err).Msg("tenant prefix lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authentication unavailable"})
			return
		}

		for _, tenant := range candidates {
			ok, err := verifier.Verify(c.Request.Context(), tenant.ID, apiKey)
			if err != nil {
				log.Error().Err(err).Str("tenant_id", tenant.ID.String()).Msg("key verification failed")
				continue
			}
			if ok {
				c.Set(string(TenantContextKey), tenant)
				log.Debug().
					Str("tenant_id", tenant.ID.String()).
					Str("path", c.Request.URL.Path).
					Msg("authenticated tenant request")
				c.Next()
				return
			}
		}

		log.Debug().Str("path", c.Request.URL.Path).Msg("invalid API key")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
	}
}
