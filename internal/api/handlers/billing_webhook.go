package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/clearviewcrm/clearview/internal/billing"
	"github.com/clearviewcrm/clearview/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SignatureHeader carries the HMAC signature of the webhook payload.
const SignatureHeader = "X-Billing-Signature"

// maxWebhookBody caps webhook payload size.
const maxWebhookBody = 256 * 1024

// WebhookHandler receives billing events from the payment processor.
//
// The contract with the processor: 400 only for a bad signature, 200 for
// everything else once the signature checks out. Processing failures are
// logged and retried by the processor's redelivery, which the event ledger
// makes safe.
type WebhookHandler struct {
	processor *billing.Processor
	secret    []byte
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(processor *billing.Processor, secret []byte, m *metrics.Metrics, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		secret:    secret,
		metrics:   m,
		logger:    logger.With().Str("component", "webhook_handler").Logger(),
	}
}

// RegisterPublicRoutes registers the webhook route. Authentication is the
// payload signature, not a session or API key.
func (h *WebhookHandler) RegisterPublicRoutes(r *gin.Engine) {
	r.POST("/webhooks/billing", h.Receive)
}

// Receive verifies and applies one billing event delivery.
// POST /webhooks/billing
func (h *WebhookHandler) Receive(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to read webhook body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	if !billing.VerifySignature(payload, c.GetHeader(SignatureHeader), h.secret) {
		h.logger.Warn().Str("client_ip", c.ClientIP()).Msg("webhook signature verification failed")
		h.observe("unknown", "bad_signature")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	// From here on the processor gets a 200 no matter what; anything else
	// would trigger redeliveries we cannot use.
	event, err := billing.ParseEvent(payload)
	if err != nil {
		h.logger.Warn().Err(err).Msg("unparseable webhook payload")
		h.observe("unknown", "unparseable")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err := h.processor.ProcessEvent(c.Request.Context(), event); err != nil {
		if errors.Is(err, billing.ErrUnknownCustomer) {
			h.logger.Warn().Str("event_id", event.ID).Msg("webhook for unknown billing customer")
			h.observe(string(event.Type), "unknown_customer")
		} else {
			h.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to process billing event")
			h.observe(string(event.Type), "error")
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	h.observe(string(event.Type), "applied")
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) observe(eventType, outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveWebhookEvent(eventType, outcome)
	}
}
