package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clearviewcrm/clearview/internal/auth"
	"github.com/clearviewcrm/clearview/internal/db"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockAuditLogStore struct {
	logs       []*models.AuditLog
	lastFilter db.AuditLogFilter
}

func (m *mockAuditLogStore) GetAuditLogsByTenantID(_ context.Context, tenantID uuid.UUID, filter db.AuditLogFilter) ([]*models.AuditLog, error) {
	m.lastFilter = filter
	var out []*models.AuditLog
	for _, l := range m.logs {
		if l.TenantID == tenantID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockAuditLogStore) CountAuditLogsByTenantID(_ context.Context, tenantID uuid.UUID, _ db.AuditLogFilter) (int64, error) {
	var n int64
	for _, l := range m.logs {
		if l.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func setupAuditLogsRouter(store AuditLogStore, session *auth.SessionUser) *gin.Engine {
	return newTestRouter(func(api *gin.RouterGroup) {
		NewAuditLogsHandler(store, zerolog.Nop()).RegisterRoutes(api)
	}, session)
}

func TestListAuditLogs(t *testing.T) {
	tenantID := uuid.New()
	otherID := uuid.New()
	store := &mockAuditLogStore{logs: []*models.AuditLog{
		models.NewAuditLog(tenantID, models.AuditActionKeyRotated, "api_key"),
		models.NewAuditLog(tenantID, models.AuditActionStatusChanged, "subscription"),
		models.NewAuditLog(otherID, models.AuditActionKeyRotated, "api_key"),
	}}
	session := &auth.SessionUser{ID: uuid.New(), TenantID: tenantID, Role: models.UserRoleClinicAdmin}
	r := setupAuditLogsRouter(store, session)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/audit-logs?action=api_key_rotated&limit=10", nil)
	r.ServeHTTP(w, req)

	decodeStatus(t, w.Code, http.StatusOK, w.Body.String())

	var resp AuditLogListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if resp.TotalCount != 2 {
		t.Errorf("total_count = %d, want 2 (other tenant's entries excluded)", resp.TotalCount)
	}
	if store.lastFilter.Action != "api_key_rotated" {
		t.Errorf("action filter = %q, want api_key_rotated", store.lastFilter.Action)
	}
	if store.lastFilter.Limit != 10 {
		t.Errorf("limit = %d, want 10", store.lastFilter.Limit)
	}
}

func TestListAuditLogs_TenantOverride(t *testing.T) {
	targetID := uuid.New()
	store := &mockAuditLogStore{logs: []*models.AuditLog{
		models.NewAuditLog(targetID, models.AuditActionGraceExpired, "api_key"),
	}}

	t.Run("super admin may inspect any tenant", func(t *testing.T) {
		session := &auth.SessionUser{ID: uuid.New(), TenantID: uuid.New(), Role: models.UserRoleSuperAdmin}
		r := setupAuditLogsRouter(store, session)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/audit-logs?tenant_id="+targetID.String(), nil)
		r.ServeHTTP(w, req)
		decodeStatus(t, w.Code, http.StatusOK, w.Body.String())

		var resp AuditLogListResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		if resp.TotalCount != 1 {
			t.Errorf("total_count = %d, want 1", resp.TotalCount)
		}
	})

	t.Run("clinic admin may not", func(t *testing.T) {
		session := &auth.SessionUser{ID: uuid.New(), TenantID: uuid.New(), Role: models.UserRoleClinicAdmin}
		r := setupAuditLogsRouter(store, session)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/audit-logs?tenant_id="+targetID.String(), nil)
		r.ServeHTTP(w, req)
		decodeStatus(t, w.Code, http.StatusForbidden, w.Body.String())
	})
}

func TestListAuditLogs_Unauthenticated(t *testing.T) {
	r := setupAuditLogsRouter(&mockAuditLogStore{}, nil)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/audit-logs", nil)
	r.ServeHTTP(w, req)
	decodeStatus(t, w.Code, http.StatusUnauthorized, w.Body.String())
}
