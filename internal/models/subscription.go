package models

// SubscriptionStatus represents a tenant's billing entitlement state.
type SubscriptionStatus string

const (
	// SubscriptionInactive means the tenant has never been billed.
	SubscriptionInactive SubscriptionStatus = "inactive"
	// SubscriptionTrial means the tenant is in a locally granted trial period.
	SubscriptionTrial SubscriptionStatus = "trial"
	// SubscriptionTrialing means the payment processor reports a trialing subscription.
	SubscriptionTrialing SubscriptionStatus = "trialing"
	// SubscriptionActive means the tenant has a paid, current subscription.
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionComped means the tenant has been granted complimentary access.
	SubscriptionComped SubscriptionStatus = "comped"
	// SubscriptionPastDue means the last payment failed; access continues during grace.
	SubscriptionPastDue SubscriptionStatus = "past_due"
	// SubscriptionSuspended means access has been administratively revoked.
	SubscriptionSuspended SubscriptionStatus = "suspended"
	// SubscriptionCancelled means the subscription ended. Terminal until a new checkout.
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// NormalizeSubscriptionStatus maps a raw processor status string to the local
// canonical enum. The processor emits both "canceled" and "cancelled"; only the
// latter is stored. Returns false if the status has no local mapping.
func NormalizeSubscriptionStatus(raw string) (SubscriptionStatus, bool) {
	switch raw {
	case "canceled", "cancelled":
		return SubscriptionCancelled, true
	case "inactive":
		return SubscriptionInactive, true
	case "trial":
		return SubscriptionTrial, true
	case "trialing":
		return SubscriptionTrialing, true
	case "active":
		return SubscriptionActive, true
	case "comped":
		return SubscriptionComped, true
	case "past_due":
		return SubscriptionPastDue, true
	case "suspended":
		return SubscriptionSuspended, true
	default:
		return "", false
	}
}

// IsEntitled returns true if the status alone grants access, independent of
// grace-period timers.
func (s SubscriptionStatus) IsEntitled() bool {
	switch s {
	case SubscriptionActive, SubscriptionTrial, SubscriptionTrialing, SubscriptionComped:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for dead-end statuses that require a new checkout to
// leave, never an internal transition.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionSuspended || s == SubscriptionCancelled
}
