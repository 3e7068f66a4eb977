package models

import "time"

// BillingEventType identifies the kind of event delivered by the payment
// processor. Unknown types are logged and ignored so new processor events do
// not break the webhook.
type BillingEventType string

const (
	// BillingEventCheckoutCompleted fires when a checkout session finishes.
	BillingEventCheckoutCompleted BillingEventType = "checkout.session.completed"
	// BillingEventInvoicePaid fires when an invoice payment succeeds.
	BillingEventInvoicePaid BillingEventType = "invoice.payment_succeeded"
	// BillingEventInvoiceFailed fires when an invoice payment fails.
	BillingEventInvoiceFailed BillingEventType = "invoice.payment_failed"
	// BillingEventSubscriptionUpdated fires when the subscription changes state.
	BillingEventSubscriptionUpdated BillingEventType = "customer.subscription.updated"
	// BillingEventSubscriptionDeleted fires when the subscription is cancelled.
	BillingEventSubscriptionDeleted BillingEventType = "customer.subscription.deleted"
)

// ProcessedEvent is the idempotency ledger row for one external billing event.
// At most one row exists per external event id; rows are immutable.
type ProcessedEvent struct {
	EventID     string           `json:"event_id"`
	EventType   BillingEventType `json:"event_type"`
	ProcessedAt time.Time        `json:"processed_at"`
}

// BillingTransition is the persistable effect of one billing event on a
// tenant, as computed by the subscription state machine.
type BillingTransition struct {
	NewStatus SubscriptionStatus
	// StartPaymentGrace starts the past_due grace timer.
	StartPaymentGrace bool
	// ClearPaymentGrace clears any running grace timer.
	ClearPaymentGrace bool
	// AttachCustomerID is set once on the tenant when non-empty.
	AttachCustomerID string
}
