package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clearviewcrm/clearview/internal/billing"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockBillingStore struct {
	tenant    *models.Tenant
	user      *models.User
	attachErr error
	attached  string
}

func (m *mockBillingStore) GetTenantByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	if m.tenant != nil && m.tenant.ID == id {
		return m.tenant, nil
	}
	return nil, errors.New("tenant not found")
}

func (m *mockBillingStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if m.user != nil && m.user.ID == id {
		return m.user, nil
	}
	return nil, errors.New("user not found")
}

func (m *mockBillingStore) AttachBillingCustomer(_ context.Context, _ uuid.UUID, customerID string) error {
	if m.attachErr != nil {
		return m.attachErr
	}
	m.attached = customerID
	m.tenant.BillingCustomerID = &customerID
	return nil
}

type mockProcessorClient struct {
	customerID     string
	checkoutParams *billing.CheckoutParams
	session        *billing.Session
	err            error
}

func (m *mockProcessorClient) CreateCustomer(_ context.Context, _ billing.CustomerParams) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.customerID, nil
}

func (m *mockProcessorClient) CreateCheckoutSession(_ context.Context, params billing.CheckoutParams) (*billing.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.checkoutParams = &params
	return m.session, nil
}

func (m *mockProcessorClient) CreatePortalSession(_ context.Context, _ string) (*billing.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

type recordingAuditor struct {
	entries []*models.AuditLog
}

func (r *recordingAuditor) Record(_ context.Context, entry *models.AuditLog) {
	r.entries = append(r.entries, entry)
}

func billingFixture(status models.SubscriptionStatus, role models.UserRole) (*mockBillingStore, *models.User) {
	tenant := models.NewTenant("Clinic")
	tenant.SubscriptionStatus = status
	user := models.NewUser(tenant.ID, "admin@clinic.test", "Admin", role)
	return &mockBillingStore{tenant: tenant, user: user}, user
}

func setupBillingRouter(store BillingStore, client ProcessorClient, auditor Auditor, user *models.User) *gin.Engine {
	return newTestRouter(func(api *gin.RouterGroup) {
		NewBillingHandler(store, client, auditor, 14, zerolog.Nop()).RegisterRoutes(api)
	}, sessionFor(user))
}

func checkoutBody(t *testing.T) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(CheckoutRequest{
		PriceID:    "price_basic",
		SuccessURL: "https://app.example.com/billing/success",
		CancelURL:  "https://app.example.com/billing/cancel",
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(body)
}

func TestCheckout_NewTenantGetsTrial(t *testing.T) {
	store, user := billingFixture(models.SubscriptionInactive, models.UserRoleClinicAdmin)
	client := &mockProcessorClient{
		customerID: "cus_new",
		session:    &billing.Session{ID: "cs_1", URL: "https://checkout.example.com/cs_1"},
	}
	auditor := &recordingAuditor{}
	r := setupBillingRouter(store, client, auditor, user)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/billing/checkout", checkoutBody(t))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	decodeStatus(t, w.Code, http.StatusCreated, w.Body.String())
	if store.attached != "cus_new" {
		t.Errorf("attached customer = %q, want cus_new", store.attached)
	}
	if client.checkoutParams == nil || client.checkoutParams.TrialDays != 14 {
		t.Errorf("trial days = %+v, want 14 for never-billed tenant", client.checkoutParams)
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Action != models.AuditActionCheckoutStarted {
		t.Errorf("expected one checkout_started audit entry, got %+v", auditor.entries)
	}
}

func TestCheckout_ReturningTenantNoTrial(t *testing.T) {
	store, user := billingFixture(models.SubscriptionCancelled, models.UserRoleClinicAdmin)
	cid := "cus_existing"
	store.tenant.BillingCustomerID = &cid
	client := &mockProcessorClient{
		session: &billing.Session{ID: "cs_2", URL: "https://checkout.example.com/cs_2"},
	}
	r := setupBillingRouter(store, client, &recordingAuditor{}, user)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/billing/checkout", checkoutBody(t))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	decodeStatus(t, w.Code, http.StatusCreated, w.Body.String())
	if client.checkoutParams.TrialDays != 0 {
		t.Errorf("trial days = %d, want 0 for previously billed tenant", client.checkoutParams.TrialDays)
	}
	if client.checkoutParams.CustomerID != "cus_existing" {
		t.Errorf("customer = %q, want existing id reused", client.checkoutParams.CustomerID)
	}
}

func TestCheckout_StaffForbidden(t *testing.T) {
	store, user := billingFixture(models.SubscriptionActive, models.UserRoleStaff)
	r := setupBillingRouter(store, &mockProcessorClient{}, &recordingAuditor{}, user)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/billing/checkout", checkoutBody(t))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	decodeStatus(t, w.Code, http.StatusForbidden, w.Body.String())
}

func TestCheckout_ProcessorDown(t *testing.T) {
	store, user := billingFixture(models.SubscriptionInactive, models.UserRoleClinicAdmin)
	client := &mockProcessorClient{err: billing.ErrExternalService}
	r := setupBillingRouter(store, client, &recordingAuditor{}, user)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/billing/checkout", checkoutBody(t))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	decodeStatus(t, w.Code, http.StatusBadGateway, w.Body.String())
	if store.attached != "" {
		t.Error("processor failure must not attach a customer id")
	}
}

func TestPortal(t *testing.T) {
	store, user := billingFixture(models.SubscriptionActive, models.UserRoleClinicAdmin)
	cid := "cus_1"
	store.tenant.BillingCustomerID = &cid
	client := &mockProcessorClient{
		session: &billing.Session{ID: "ps_1", URL: "https://portal.example.com/ps_1"},
	}
	auditor := &recordingAuditor{}
	r := setupBillingRouter(store, client, auditor, user)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/billing/portal", nil)
	r.ServeHTTP(w, req)

	decodeStatus(t, w.Code, http.StatusCreated, w.Body.String())
	if len(auditor.entries) != 1 || auditor.entries[0].Action != models.AuditActionPortalAccessed {
		t.Errorf("expected one portal_accessed audit entry, got %+v", auditor.entries)
	}
}

func TestPortal_NoCustomerYet(t *testing.T) {
	store, user := billingFixture(models.SubscriptionInactive, models.UserRoleClinicAdmin)
	r := setupBillingRouter(store, &mockProcessorClient{}, &recordingAuditor{}, user)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/billing/portal", nil)
	r.ServeHTTP(w, req)

	decodeStatus(t, w.Code, http.StatusConflict, w.Body.String())
}
