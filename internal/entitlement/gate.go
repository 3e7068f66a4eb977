// Package entitlement decides whether a request may reach protected resources
// given the tenant's subscription state and the caller's role.
package entitlement

import (
	"time"

	"github.com/clearviewcrm/clearview/internal/models"
)

// Redirect tells the caller where to send a denied request.
type Redirect string

const (
	// RedirectNone means no redirect is required.
	RedirectNone Redirect = ""
	// RedirectLogin sends unauthenticated callers to authentication.
	RedirectLogin Redirect = "login"
	// RedirectBilling sends unentitled tenants to the billing page.
	RedirectBilling Redirect = "billing"
)

// Decision is the outcome of one entitlement evaluation.
type Decision struct {
	Allowed  bool     `json:"allowed"`
	Reason   string   `json:"reason"`
	Redirect Redirect `json:"redirect,omitempty"`
	// RefreshCache marks decisions stable enough to cache for the full
	// verification TTL. Grace-window allowances are deliberately not
	// cached long-term.
	RefreshCache bool `json:"-"`
	// InvalidateCache marks denials that must evict any cached verdict.
	InvalidateCache bool `json:"-"`
}

// Evaluate runs the decision table. Rules are evaluated in order; the first
// match wins. It is pure and safe to re-run on every request.
func Evaluate(tenant *models.Tenant, user *models.User, requiresSubscription bool, now time.Time) Decision {
	if user == nil {
		return Decision{Reason: "authentication required", Redirect: RedirectLogin}
	}

	if user.IsSuperAdmin() {
		return Decision{Allowed: true, Reason: "super admin"}
	}

	if !requiresSubscription {
		return Decision{Allowed: true, Reason: "no subscription required"}
	}

	if tenant == nil {
		return Decision{Reason: "tenant not found", Redirect: RedirectBilling, InvalidateCache: true}
	}

	status := tenant.SubscriptionStatus
	if status.IsEntitled() {
		return Decision{Allowed: true, Reason: string(status), RefreshCache: true}
	}

	if status == models.SubscriptionPastDue {
		if tenant.InPaymentGrace(now) {
			return Decision{Allowed: true, Reason: "past_due within grace"}
		}
		return Decision{Reason: "past_due grace elapsed", Redirect: RedirectBilling, InvalidateCache: true}
	}

	return Decision{Reason: string(status), Redirect: RedirectBilling, InvalidateCache: true}
}
