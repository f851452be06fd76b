// Package models defines plan, billing and usage tracking types.
package models

import "time"

type Plan string

const (
	PlanFree     Plan = "free"
	PlanPro      Plan = "pro"
	PlanLifetime Plan = "lifetime"
)

// ValidPlan reports whether p is one of the recognized plan values.
func ValidPlan(p Plan) bool {
	switch p {
	case PlanFree, PlanPro, PlanLifetime:
		return true
	}
	return false
}

// Cadence is the billing interval requested at checkout.
type Cadence string

const (
	CadenceMonthly  Cadence = "monthly"
	CadenceYearly   Cadence = "yearly"
	CadenceLifetime Cadence = "lifetime"
)

// SubscriptionStatus mirrors Stripe's subscription status enumeration.
// Empty means no subscription has ever been seen for the profile.
type SubscriptionStatus string

const (
	SubStatusNone              SubscriptionStatus = ""
	SubStatusTrialing          SubscriptionStatus = "trialing"
	SubStatusActive            SubscriptionStatus = "active"
	SubStatusPastDue           SubscriptionStatus = "past_due"
	SubStatusCanceled          SubscriptionStatus = "canceled"
	SubStatusUnpaid            SubscriptionStatus = "unpaid"
	SubStatusIncomplete        SubscriptionStatus = "incomplete"
	SubStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubStatusPaused            SubscriptionStatus = "paused"
)

// BillingProfile is the locally stored billing state for one account.
// Stripe owns the source of truth; these fields are converged from its
// events. plan=lifetime is monotonic and never downgraded by status changes.
type BillingProfile struct {
	UserID               string             `db:"user_id"`
	Email                string             `db:"email"`
	Plan                 Plan               `db:"plan"`
	StripeCustomerID     string             `db:"stripe_customer_id"`
	StripeSubscriptionID string             `db:"stripe_subscription_id"`
	SubscriptionStatus   SubscriptionStatus `db:"subscription_status"`
	CancelAtPeriodEnd    bool               `db:"cancel_at_period_end"`
	CurrentPeriodEnd     time.Time          `db:"current_period_end"`
	UsageTotal           int                `db:"usage_total"`
}
