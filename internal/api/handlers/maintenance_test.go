package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clearviewcrm/clearview/internal/auth"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockHandlerSweeper struct {
	cleared int
	err     error
	calls   int
}

func (m *mockHandlerSweeper) SweepExpiredGracePeriods(_ context.Context) (int, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.cleared, nil
}

func setupMaintenanceRouter(sweeper GraceSweeper, session *auth.SessionUser) *gin.Engine {
	return newTestRouter(func(api *gin.RouterGroup) {
		NewMaintenanceHandler(sweeper, nil, zerolog.Nop()).RegisterRoutes(api)
	}, session)
}

func TestSweep_SuperAdmin(t *testing.T) {
	sweeper := &mockHandlerSweeper{cleared: 2}
	session := &auth.SessionUser{ID: uuid.New(), TenantID: uuid.New(), Role: models.UserRoleSuperAdmin}
	r := setupMaintenanceRouter(sweeper, session)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/maintenance/sweep", nil)
	r.ServeHTTP(w, req)

	decodeStatus(t, w.Code, http.StatusOK, w.Body.String())
	if sweeper.calls != 1 {
		t.Errorf("sweeper calls = %d, want 1", sweeper.calls)
	}
}

func TestSweep_NonSuperAdminForbidden(t *testing.T) {
	sweeper := &mockHandlerSweeper{}
	session := &auth.SessionUser{ID: uuid.New(), TenantID: uuid.New(), Role: models.UserRoleClinicAdmin}
	r := setupMaintenanceRouter(sweeper, session)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/maintenance/sweep", nil)
	r.ServeHTTP(w, req)

	decodeStatus(t, w.Code, http.StatusForbidden, w.Body.String())
	if sweeper.calls != 0 {
		t.Error("sweeper must not run for non-super-admin callers")
	}
}

func TestSweep_Failure(t *testing.T) {
	sweeper := &mockHandlerSweeper{err: errors.New("db connection lost")}
	session := &auth.SessionUser{ID: uuid.New(), TenantID: uuid.New(), Role: models.UserRoleSuperAdmin}
	r := setupMaintenanceRouter(sweeper, session)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/maintenance/sweep", nil)
	r.ServeHTTP(w, req)

	decodeStatus(t, w.Code, http.StatusInternalServerError, w.Body.String())
}
