// Package billing keeps tenant subscription state in sync with the external
// payment processor and manages outbound billing operations.
package billing

import (
	"encoding/json"
	"fmt"

	"github.com/clearviewcrm/clearview/internal/models"
)

// Event is one parsed billing event from the processor webhook.
type Event struct {
	ID         string                  `json:"id"`
	Type       models.BillingEventType `json:"type"`
	CustomerID string                  `json:"customer_id"`
	// Status carries the processor's subscription status for
	// subscription-updated events; empty otherwise.
	Status string `json:"status,omitempty"`
}

// ParseEvent decodes a webhook payload into an Event. The payload nests the
// interesting fields under data.object, mirroring the processor's envelope.
func ParseEvent(payload []byte) (*Event, error) {
	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				Customer string `json:"customer"`
				Status   string `json:"status"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode billing event: %w", err)
	}
	if envelope.ID == "" {
		return nil, fmt.Errorf("billing event missing id")
	}
	if envelope.Type == "" {
		return nil, fmt.Errorf("billing event %s missing type", envelope.ID)
	}

	return &Event{
		ID:         envelope.ID,
		Type:       models.BillingEventType(envelope.Type),
		CustomerID: envelope.Data.Object.Customer,
		Status:     envelope.Data.Object.Status,
	}, nil
}
