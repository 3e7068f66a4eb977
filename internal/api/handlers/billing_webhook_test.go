package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clearviewcrm/clearview/internal/billing"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var testWebhookSecret = []byte("whsec_test")

type mockWebhookStore struct {
	tenant   *models.Tenant
	ledger   map[string]bool
	applyErr error
	applied  []models.BillingTransition
}

func (m *mockWebhookStore) GetTenantByBillingCustomerID(_ context.Context, customerID string) (*models.Tenant, error) {
	if m.tenant != nil && m.tenant.BillingCustomerID != nil && *m.tenant.BillingCustomerID == customerID {
		return m.tenant, nil
	}
	return nil, errors.New("tenant not found")
}

func (m *mockWebhookStore) ApplyBillingEvent(_ context.Context, event *models.ProcessedEvent, _ uuid.UUID, tr models.BillingTransition, _ time.Duration) (bool, models.SubscriptionStatus, error) {
	if m.applyErr != nil {
		return false, "", m.applyErr
	}
	if m.ledger[event.EventID] {
		return true, "", nil
	}
	m.ledger[event.EventID] = true
	m.applied = append(m.applied, tr)
	prev := m.tenant.SubscriptionStatus
	m.tenant.SubscriptionStatus = tr.NewStatus
	return false, prev, nil
}

type nopAuditor struct{}

func (nopAuditor) Record(_ context.Context, _ *models.AuditLog) {}

func setupWebhookRouter(store *mockWebhookStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	processor := billing.NewProcessor(store, nopAuditor{}, 72*time.Hour, zerolog.Nop())
	handler := NewWebhookHandler(processor, testWebhookSecret, nil, zerolog.Nop())
	r := gin.New()
	handler.RegisterPublicRoutes(r)
	return r
}

func newWebhookStore(status models.SubscriptionStatus) *mockWebhookStore {
	tenant := models.NewTenant("Clinic")
	tenant.SubscriptionStatus = status
	cid := "cus_1"
	tenant.BillingCustomerID = &cid
	return &mockWebhookStore{tenant: tenant, ledger: make(map[string]bool)}
}

func postWebhook(r *gin.Engine, payload []byte, signature string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/webhooks/billing", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	r.ServeHTTP(w, req)
	return w
}

func eventPayload(id, eventType, customer string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"type":%q,"data":{"object":{"customer":%q}}}`,
		id, eventType, customer,
	))
}

func TestWebhook_BadSignature(t *testing.T) {
	store := newWebhookStore(models.SubscriptionActive)
	r := setupWebhookRouter(store)
	payload := eventPayload("evt_1", "invoice.payment_failed", "cus_1")

	tests := []struct {
		name      string
		signature string
	}{
		{"missing signature", ""},
		{"garbage signature", "sha256=deadbeef"},
		{"wrong secret", billing.SignPayload(payload, []byte("whsec_other"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postWebhook(r, payload, tt.signature)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if store.tenant.SubscriptionStatus != models.SubscriptionActive {
				t.Error("rejected delivery must not change state")
			}
		})
	}
}

func TestWebhook_AppliesEvent(t *testing.T) {
	store := newWebhookStore(models.SubscriptionActive)
	r := setupWebhookRouter(store)
	payload := eventPayload("evt_1", "invoice.payment_failed", "cus_1")

	w := postWebhook(r, payload, billing.SignPayload(payload, testWebhookSecret))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if store.tenant.SubscriptionStatus != models.SubscriptionPastDue {
		t.Errorf("status = %q, want past_due", store.tenant.SubscriptionStatus)
	}
	if len(store.applied) != 1 || !store.applied[0].StartPaymentGrace {
		t.Error("invoice failure must start the payment grace window")
	}
}

func TestWebhook_DuplicateDeliveryStill200(t *testing.T) {
	store := newWebhookStore(models.SubscriptionPastDue)
	r := setupWebhookRouter(store)
	payload := eventPayload("evt_1", "invoice.payment_succeeded", "cus_1")
	sig := billing.SignPayload(payload, testWebhookSecret)

	if w := postWebhook(r, payload, sig); w.Code != http.StatusOK {
		t.Fatalf("first delivery: expected 200, got %d", w.Code)
	}
	if w := postWebhook(r, payload, sig); w.Code != http.StatusOK {
		t.Fatalf("duplicate delivery: expected 200, got %d", w.Code)
	}
	if len(store.applied) != 1 {
		t.Errorf("transitions applied = %d, want 1", len(store.applied))
	}
}

func TestWebhook_Always200AfterSignature(t *testing.T) {
	tests := []struct {
		name    string
		store   *mockWebhookStore
		payload []byte
	}{
		{
			name:    "unparseable payload",
			store:   newWebhookStore(models.SubscriptionActive),
			payload: []byte("not json"),
		},
		{
			name:    "unknown event type",
			store:   newWebhookStore(models.SubscriptionActive),
			payload: eventPayload("evt_1", "customer.created", "cus_1"),
		},
		{
			name:    "unknown customer",
			store:   newWebhookStore(models.SubscriptionActive),
			payload: eventPayload("evt_1", "invoice.payment_succeeded", "cus_other"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupWebhookRouter(tt.store)
			w := postWebhook(r, tt.payload, billing.SignPayload(tt.payload, testWebhookSecret))
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
		})
	}
}

func TestWebhook_StoreFailureStill200(t *testing.T) {
	store := newWebhookStore(models.SubscriptionActive)
	store.applyErr = errors.New("deadlock detected")
	r := setupWebhookRouter(store)
	payload := eventPayload("evt_1", "invoice.payment_succeeded", "cus_1")

	w := postWebhook(r, payload, billing.SignPayload(payload, testWebhookSecret))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 so the processor retries later, got %d", w.Code)
	}
}
