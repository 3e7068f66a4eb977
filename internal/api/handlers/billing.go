package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/clearviewcrm/clearview/internal/api/middleware"
	"github.com/clearviewcrm/clearview/internal/billing"
	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BillingStore defines tenant persistence for billing operations.
type BillingStore interface {
	GetTenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	AttachBillingCustomer(ctx context.Context, tenantID uuid.UUID, customerID string) error
}

// ProcessorClient defines the outbound payment processor operations.
type ProcessorClient interface {
	CreateCustomer(ctx context.Context, params billing.CustomerParams) (string, error)
	CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (*billing.Session, error)
	CreatePortalSession(ctx context.Context, customerID string) (*billing.Session, error)
}

// Auditor records billing actions.
type Auditor interface {
	Record(ctx context.Context, entry *models.AuditLog)
}

// BillingHandler handles user-initiated billing HTTP endpoints.
type BillingHandler struct {
	store     BillingStore
	client    ProcessorClient
	auditor   Auditor
	trialDays int
	logger    zerolog.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(store BillingStore, client ProcessorClient, auditor Auditor, trialDays int, logger zerolog.Logger) *BillingHandler {
	return &BillingHandler{
		store:     store,
		client:    client,
		auditor:   auditor,
		trialDays: trialDays,
		logger:    logger.With().Str("component", "billing_handler").Logger(),
	}
}

// RegisterRoutes registers billing routes on the given router group.
func (h *BillingHandler) RegisterRoutes(r *gin.RouterGroup) {
	bg := r.Group("/billing")
	{
		bg.POST("/checkout", h.Checkout)
		bg.POST("/portal", h.Portal)
	}
}

// CheckoutRequest is the body for creating a checkout session.
type CheckoutRequest struct {
	PriceID    string `json:"price_id" binding:"required"`
	SuccessURL string `json:"success_url" binding:"required,url"`
	CancelURL  string `json:"cancel_url" binding:"required,url"`
}

// Checkout creates a hosted checkout session for the caller's tenant.
// Trial eligibility is decided here, from the tenant's current status: only a
// never-billed tenant gets trial days.
// POST /api/v1/billing/checkout
func (h *BillingHandler) Checkout(c *gin.Context) {
	user, tenant := h.requireBillingAdmin(c)
	if user == nil {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price_id, success_url and cancel_url are required"})
		return
	}

	customerID, err := h.ensureCustomer(c.Request.Context(), tenant, user)
	if err != nil {
		h.respondProcessorError(c, err, "failed to register billing customer")
		return
	}

	session, err := h.client.CreateCheckoutSession(c.Request.Context(), billing.CheckoutParams{
		CustomerID: customerID,
		PriceID:    req.PriceID,
		TrialDays:  billing.TrialDays(tenant.SubscriptionStatus, h.trialDays),
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		h.respondProcessorError(c, err, "failed to create checkout session")
		return
	}

	entry := models.NewAuditLog(tenant.ID, models.AuditActionCheckoutStarted, "billing").
		WithActor(user.ID).
		WithResource(tenant.ID).
		WithDetails(fmt.Sprintf("session=%s", session.ID))
	h.auditor.Record(c.Request.Context(), entry)

	c.JSON(http.StatusCreated, session)
}

// Portal creates a billing portal session for the caller's tenant.
// POST /api/v1/billing/portal
func (h *BillingHandler) Portal(c *gin.Context) {
	user, tenant := h.requireBillingAdmin(c)
	if user == nil {
		return
	}

	if tenant.BillingCustomerID == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "tenant has no billing customer yet"})
		return
	}

	session, err := h.client.CreatePortalSession(c.Request.Context(), *tenant.BillingCustomerID)
	if err != nil {
		h.respondProcessorError(c, err, "failed to create portal session")
		return
	}

	entry := models.NewAuditLog(tenant.ID, models.AuditActionPortalAccessed, "billing").
		WithActor(user.ID).
		WithResource(tenant.ID).
		WithDetails(fmt.Sprintf("session=%s", session.ID))
	h.auditor.Record(c.Request.Context(), entry)

	c.JSON(http.StatusCreated, session)
}

// requireBillingAdmin loads the fresh user and tenant, enforcing the billing
// management role. Returns nils after writing the response on failure.
func (h *BillingHandler) requireBillingAdmin(c *gin.Context) (*models.User, *models.Tenant) {
	sessionUser := middleware.RequireUser(c)
	if sessionUser == nil {
		return nil, nil
	}

	user, err := h.store.GetUserByID(c.Request.Context(), sessionUser.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", sessionUser.ID.String()).Msg("failed to load user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify requester"})
		return nil, nil
	}
	if !user.CanManageBilling() {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required to manage billing"})
		return nil, nil
	}

	tenant, err := h.store.GetTenantByID(c.Request.Context(), user.TenantID)
	if err != nil {
		h.logger.Error().Err(err).Str("tenant_id", user.TenantID.String()).Msg("failed to load tenant")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tenant"})
		return nil, nil
	}

	return user, tenant
}

// ensureCustomer returns the tenant's billing customer id, registering the
// tenant with the processor on first use. The id is attached set-once; a
// concurrent attach wins and the stored id is reused.
func (h *BillingHandler) ensureCustomer(ctx context.Context, tenant *models.Tenant, user *models.User) (string, error) {
	if tenant.BillingCustomerID != nil {
		return *tenant.BillingCustomerID, nil
	}

	customerID, err := h.client.CreateCustomer(ctx, billing.CustomerParams{
		TenantID: tenant.ID.String(),
		Name:     tenant.Name,
		Email:    user.Email,
	})
	if err != nil {
		return "", err
	}

	if err := h.store.AttachBillingCustomer(ctx, tenant.ID, customerID); err != nil {
		// Lost a race with another attach; re-read and use the winner.
		fresh, readErr := h.store.GetTenantByID(ctx, tenant.ID)
		if readErr == nil && fresh.BillingCustomerID != nil {
			return *fresh.BillingCustomerID, nil
		}
		return "", fmt.Errorf("attach billing customer: %w", err)
	}
	return customerID, nil
}

func (h *BillingHandler) respondProcessorError(c *gin.Context, err error, msg string) {
	if errors.Is(err, billing.ErrExternalService) {
		h.logger.Error().Err(err).Msg(msg)
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment processor unavailable"})
		return
	}
	h.logger.Error().Err(err).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
