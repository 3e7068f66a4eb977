package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clearviewcrm/clearview/internal/config"
	"github.com/clearviewcrm/clearview/internal/httpclient"
	"github.com/rs/zerolog"
)

// ErrExternalService is returned when the payment processor is unreachable or
// responds with an error. The caller's state is never mutated on this path.
var ErrExternalService = errors.New("payment processor error")

// ClientConfig holds configuration for the payment processor client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	// Timeout bounds every request; on expiry the user-facing operation
	// fails cleanly and retries are left to the caller.
	Timeout time.Duration
	// Proxy routes processor calls through an egress proxy when set.
	Proxy *config.ProxyConfig
}

// Client talks to the external payment processor.
type Client struct {
	cfg    ClientConfig
	client *http.Client
	logger zerolog.Logger
}

// NewClient creates a new payment processor client.
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	log := logger.With().Str("component", "billing_client").Logger()

	client, err := httpclient.New(httpclient.Options{Timeout: cfg.Timeout, ProxyConfig: cfg.Proxy})
	if err != nil {
		log.Warn().Err(err).Msg("invalid proxy configuration, connecting directly")
		client = httpclient.NewSimple(cfg.Timeout)
	}

	return &Client{
		cfg:    cfg,
		client: client,
		logger: log,
	}
}

// CustomerParams describe the tenant to register with the processor.
type CustomerParams struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// CheckoutParams describe a checkout session to create. TrialDays carries the
// trial-eligibility decision made at session creation time.
type CheckoutParams struct {
	CustomerID string `json:"customer"`
	PriceID    string `json:"price"`
	TrialDays  int    `json:"trial_period_days"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// Session is a checkout or portal session returned by the processor.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCustomer registers the tenant with the processor and returns the
// external customer id.
func (c *Client) CreateCustomer(ctx context.Context, params CustomerParams) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/v1/customers", params, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// CreateCheckoutSession creates a hosted checkout session.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*Session, error) {
	var session Session
	if err := c.post(ctx, "/v1/checkout/sessions", params, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreatePortalSession creates a billing portal session for an existing customer.
func (c *Client) CreatePortalSession(ctx context.Context, customerID string) (*Session, error) {
	var session Session
	body := map[string]string{"customer": customerID}
	if err := c.post(ctx, "/v1/billing_portal/sessions", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("payment processor request failed")
		return fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrExternalService, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("path", path).
			Str("body", string(respBody)).
			Msg("payment processor returned error")
		return fmt.Errorf("%w: status %d", ErrExternalService, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrExternalService, err)
		}
	}
	return nil
}
