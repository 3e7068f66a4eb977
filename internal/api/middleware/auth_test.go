package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clearviewcrm/clearview/internal/auth"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestSessions(t *testing.T) *auth.SessionStore {
	t.Helper()
	cfg := auth.DefaultSessionConfig([]byte("0123456789abcdef0123456789abcdef"), false)
	sessions, err := auth.NewSessionStore(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSessionStore() error: %v", err)
	}
	return sessions
}

func sessionCookies(t *testing.T, sessions *auth.SessionStore, user *auth.SessionUser) []*http.Cookie {
	t.Helper()
	req := httptest.NewRequest("POST", "/auth/session", nil)
	rec := httptest.NewRecorder()
	if err := sessions.SetUser(req, rec, user); err != nil {
		t.Fatalf("SetUser() error: %v", err)
	}
	return rec.Result().Cookies()
}

func setupAuthRouter(sessions *auth.SessionStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authed := r.Group("/api/v1")
	authed.Use(AuthMiddleware(sessions, zerolog.Nop()))
	authed.GET("/me", func(c *gin.Context) {
		user := RequireUser(c)
		if user == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": user.ID})
	})
	authed.POST("/sweep", func(c *gin.Context) {
		if RequireSuperAdmin(c) == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestAuthMiddleware_ValidSession(t *testing.T) {
	sessions := newTestSessions(t)
	r := setupAuthRouter(sessions)

	cookies := sessionCookies(t, sessions, &auth.SessionUser{
		ID:              uuid.New(),
		TenantID:        uuid.New(),
		Role:            models.UserRoleStaff,
		AuthenticatedAt: time.Now(),
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddleware_NoSession(t *testing.T) {
	sessions := newTestSessions(t)
	r := setupAuthRouter(sessions)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/me", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireSuperAdmin(t *testing.T) {
	sessions := newTestSessions(t)
	r := setupAuthRouter(sessions)

	tests := []struct {
		name string
		role models.UserRole
		want int
	}{
		{"super admin allowed", models.UserRoleSuperAdmin, http.StatusOK},
		{"clinic admin forbidden", models.UserRoleClinicAdmin, http.StatusForbidden},
		{"staff forbidden", models.UserRoleStaff, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cookies := sessionCookies(t, sessions, &auth.SessionUser{
				ID:       uuid.New(),
				TenantID: uuid.New(),
				Role:     tt.role,
			})
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/api/v1/sweep", nil)
			for _, c := range cookies {
				req.AddCookie(c)
			}
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}
