package billing

import "github.com/clearviewcrm/clearview/internal/models"

// Transition maps a billing event to its effect on the tenant. Returns false
// for event types this machine does not handle; those are logged and ignored
// so new processor event types never break the webhook.
//
// Transitions depend only on the event, never on the tenant's current status;
// per-tenant serialization happens at the persistence layer.
func Transition(event *Event) (models.BillingTransition, bool) {
	switch event.Type {
	case models.BillingEventCheckoutCompleted:
		// Checkout lands the tenant on whatever the processor reports,
		// defaulting to active. Trial eligibility was already decided
		// when the checkout session was created.
		status := models.SubscriptionActive
		if mapped, ok := models.NormalizeSubscriptionStatus(event.Status); ok {
			status = mapped
		}
		return models.BillingTransition{
			NewStatus:         status,
			ClearPaymentGrace: true,
			AttachCustomerID:  event.CustomerID,
		}, true

	case models.BillingEventInvoicePaid:
		return models.BillingTransition{
			NewStatus:         models.SubscriptionActive,
			ClearPaymentGrace: true,
		}, true

	case models.BillingEventInvoiceFailed:
		return models.BillingTransition{
			NewStatus:         models.SubscriptionPastDue,
			StartPaymentGrace: true,
		}, true

	case models.BillingEventSubscriptionUpdated:
		status, ok := models.NormalizeSubscriptionStatus(event.Status)
		if !ok {
			return models.BillingTransition{}, false
		}
		return models.BillingTransition{NewStatus: status}, true

	case models.BillingEventSubscriptionDeleted:
		return models.BillingTransition{
			NewStatus:         models.SubscriptionCancelled,
			ClearPaymentGrace: true,
		}, true

	default:
		return models.BillingTransition{}, false
	}
}

// TrialDays returns the trial length a tenant is eligible for at checkout
// creation. Only never-billed tenants receive a trial; anything else gets
// zero days, which prevents trial abuse via repeated checkout sessions.
func TrialDays(status models.SubscriptionStatus, configured int) int {
	if status == models.SubscriptionInactive {
		return configured
	}
	return 0
}
