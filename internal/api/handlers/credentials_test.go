package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clearviewcrm/clearview/internal/credentials"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockVault struct {
	result *credentials.RotationResult
	err    error
	calls  int
}

func (m *mockVault) IssueOrRotate(_ context.Context, _ uuid.UUID, requester *models.User) (*credentials.RotationResult, error) {
	m.calls++
	if requester == nil || !requester.CanManageBilling() {
		return nil, credentials.ErrPermissionDenied
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func setupCredentialsRouter(vault CredentialVault, users UserLoader, user *models.User) *gin.Engine {
	var session = sessionFor(user)
	return newTestRouter(func(api *gin.RouterGroup) {
		NewCredentialsHandler(vault, users, nil, zerolog.Nop()).RegisterRoutes(api)
	}, session)
}

func TestRotateCredentials(t *testing.T) {
	admin := models.NewUser(uuid.New(), "admin@clinic.test", "Admin", models.UserRoleClinicAdmin)
	users := &mockUserLoader{users: map[uuid.UUID]*models.User{admin.ID: admin}}
	expiry := time.Now().Add(time.Hour)
	vault := &mockVault{result: &credentials.RotationResult{
		Key:            "cvw_" + strings.Repeat("ab", 32),
		Prefix:         "cvw_abab",
		GraceActive:    true,
		GraceExpiresAt: &expiry,
	}}

	r := setupCredentialsRouter(vault, users, admin)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/credentials/rotate", nil)
	r.ServeHTTP(w, req)

	decodeStatus(t, w.Code, http.StatusOK, w.Body.String())

	var resp credentials.RotationResult
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if resp.Key == "" {
		t.Error("response must carry the plaintext key exactly once")
	}
	if !resp.GraceActive {
		t.Error("expected grace window active after rotation")
	}
}

func TestRotateCredentials_StaffForbidden(t *testing.T) {
	staff := models.NewUser(uuid.New(), "staff@clinic.test", "Staff", models.UserRoleStaff)
	users := &mockUserLoader{users: map[uuid.UUID]*models.User{staff.ID: staff}}
	vault := &mockVault{}

	r := setupCredentialsRouter(vault, users, staff)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/credentials/rotate", nil)
	r.ServeHTTP(w, req)

	decodeStatus(t, w.Code, http.StatusForbidden, w.Body.String())
}

func TestRotateCredentials_VaultFailure(t *testing.T) {
	admin := models.NewUser(uuid.New(), "admin@clinic.test", "Admin", models.UserRoleClinicAdmin)
	users := &mockUserLoader{users: map[uuid.UUID]*models.User{admin.ID: admin}}
	vault := &mockVault{err: errors.New("connection reset")}

	r := setupCredentialsRouter(vault, users, admin)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/credentials/rotate", nil)
	r.ServeHTTP(w, req)

	decodeStatus(t, w.Code, http.StatusInternalServerError, w.Body.String())
}

func TestRotateCredentials_Unauthenticated(t *testing.T) {
	vault := &mockVault{}
	users := &mockUserLoader{users: map[uuid.UUID]*models.User{}}

	r := newTestRouter(func(api *gin.RouterGroup) {
		NewCredentialsHandler(vault, users, nil, zerolog.Nop()).RegisterRoutes(api)
	}, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/credentials/rotate", nil)
	r.ServeHTTP(w, req)

	decodeStatus(t, w.Code, http.StatusUnauthorized, w.Body.String())
	if vault.calls != 0 {
		t.Error("vault must not be called for unauthenticated requests")
	}
}
