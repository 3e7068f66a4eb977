package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/clearviewcrm/clearview/internal/api/middleware"
	"github.com/clearviewcrm/clearview/internal/auth"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// sessionInjector fakes an authenticated session for handler tests.
func sessionInjector(user *auth.SessionUser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			c.Set(string(middleware.UserContextKey), user)
		}
		c.Next()
	}
}

func sessionFor(user *models.User) *auth.SessionUser {
	return &auth.SessionUser{
		ID:       user.ID,
		TenantID: user.TenantID,
		Email:    user.Email,
		Role:     user.Role,
	}
}

// mockUserLoader implements UserLoader backed by a fixed user set.
type mockUserLoader struct {
	users map[uuid.UUID]*models.User
}

func (m *mockUserLoader) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func newTestRouter(register func(r *gin.RouterGroup), user *auth.SessionUser) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(sessionInjector(user))
	register(api)
	return r
}

func decodeStatus(t *testing.T, got, want int, body string) {
	t.Helper()
	if got != want {
		t.Fatalf("expected %d, got %d: %s", want, got, body)
	}
}
