// Package app converges locally stored billing state with Stripe's.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/models"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/subscription"
)

const (
	metaUserID = "userId"
	metaPlan   = "plan"
)

// errNoCompletedSession is the pull path's typed miss: nothing recent and
// settled belongs to the caller.
var errNoCompletedSession = errors.New("no completed checkout session found")

// activeLikeStatus reports the subscription states that still grant pro
// access. past_due is a deliberate grace period while Stripe retries payment.
func activeLikeStatus(s models.SubscriptionStatus) bool {
	switch s {
	case models.SubStatusTrialing, models.SubStatusActive, models.SubStatusPastDue:
		return true
	}
	return false
}

// planFromCheckoutSession reads the plan recorded in session metadata at
// checkout creation time.
func planFromCheckoutSession(sess *stripe.CheckoutSession) (models.Plan, bool) {
	if sess == nil || sess.Metadata == nil {
		return "", false
	}
	plan := models.Plan(sess.Metadata[metaPlan])
	if plan != models.PlanPro && plan != models.PlanLifetime {
		return "", false
	}
	return plan, true
}

// sessionBelongsToUser decides whether a checkout session may be applied to
// the given account: the metadata-recorded account id must match, or failing
// that the billing email must match case-insensitively.
func sessionBelongsToUser(sess *stripe.CheckoutSession, userID, email string) bool {
	if sess == nil {
		return false
	}
	if metaID := sess.Metadata[metaUserID]; metaID != "" {
		return metaID == userID
	}
	sessEmail := sess.CustomerEmail
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		sessEmail = sess.CustomerDetails.Email
	}
	if sessEmail == "" || email == "" {
		return false
	}
	return strings.EqualFold(sessEmail, email)
}

// sessionSettled reports whether the session's payment has actually landed.
// Payment-mode (lifetime) sessions are only eligible once paid or
// no_payment_required; subscription-mode sessions settle on completion.
func sessionSettled(sess *stripe.CheckoutSession) bool {
	if sess == nil || sess.Status != stripe.CheckoutSessionStatusComplete {
		return false
	}
	if sess.Mode == stripe.CheckoutSessionModePayment {
		return sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
	}
	return true
}

// applyCheckoutSession is the single convergence routine shared by the
// webhook push path and both sync pull paths, so the two can never diverge.
// The write is a full-field upsert keyed by account id, which also makes
// duplicate delivery a no-op after the first application.
func applyCheckoutSession(ctx context.Context, userID string, sess *stripe.CheckoutSession) error {
	plan, ok := planFromCheckoutSession(sess)
	if !ok {
		return fmt.Errorf("checkout session %s has no recognized plan metadata", sess.ID)
	}

	update := billingUpdate{Plan: plan}
	if sess.Customer != nil {
		update.StripeCustomerID = sess.Customer.ID
	}

	if sess.Subscription != nil {
		// Webhook payloads carry the subscription id only; fetch the full
		// object so status fields land in the same write.
		sub := sess.Subscription
		if sub.Status == "" {
			fetched, err := subscription.Get(sub.ID, nil)
			if err != nil {
				log.Printf("subscription fetch failed id=%s err=%v", sub.ID, err)
			} else {
				sub = fetched
			}
		}
		update.StripeSubscriptionID = sub.ID
		update.SubscriptionStatus = models.SubscriptionStatus(sub.Status)
		update.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		if sub.CurrentPeriodEnd > 0 {
			update.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		}
	}

	return applyBillingUpdate(ctx, userID, update)
}

// resolveSessionUser finds the account a session should be applied to:
// metadata first, then the stored customer mapping.
func resolveSessionUser(ctx context.Context, sess *stripe.CheckoutSession) (string, error) {
	if id := sess.Metadata[metaUserID]; id != "" {
		return id, nil
	}
	if sess.Customer == nil || sess.Customer.ID == "" {
		return "", fmt.Errorf("checkout session %s has no resolvable account", sess.ID)
	}
	profile, err := getProfileByStripeCustomer(ctx, sess.Customer.ID)
	if err != nil {
		return "", fmt.Errorf("no profile for stripe customer %s: %w", sess.Customer.ID, err)
	}
	return profile.UserID, nil
}

// applySubscriptionEvent handles customer.subscription.created/updated:
// always overwrite the status fields; flip plan to pro on active-like
// statuses. Lifetime is guarded at the write.
func applySubscriptionEvent(ctx context.Context, sub *stripe.Subscription) error {
	if sub == nil || sub.Customer == nil || sub.Customer.ID == "" {
		return errors.New("subscription event missing customer id")
	}
	userID, plan, err := planForCustomer(ctx, sub.Customer.ID)
	if err != nil {
		return err
	}

	status := models.SubscriptionStatus(sub.Status)
	if activeLikeStatus(status) {
		plan = models.PlanPro
	}

	update := billingUpdate{
		Plan:                 plan,
		StripeCustomerID:     sub.Customer.ID,
		StripeSubscriptionID: sub.ID,
		SubscriptionStatus:   status,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodEnd > 0 {
		update.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	return applyBillingUpdate(ctx, userID, update)
}

// applySubscriptionDeleted drops the account back to free unless the stored
// plan is lifetime.
func applySubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	if sub == nil || sub.Customer == nil || sub.Customer.ID == "" {
		return errors.New("subscription event missing customer id")
	}
	userID, _, err := planForCustomer(ctx, sub.Customer.ID)
	if err != nil {
		return err
	}
	return applyBillingUpdate(ctx, userID, billingUpdate{
		Plan:                 models.PlanFree,
		StripeCustomerID:     sub.Customer.ID,
		StripeSubscriptionID: sub.ID,
		SubscriptionStatus:   models.SubStatusCanceled,
	})
}

func planForCustomer(ctx context.Context, customerID string) (string, models.Plan, error) {
	profile, err := getProfileByStripeCustomer(ctx, customerID)
	if err != nil {
		if db == nil {
			return customerID, models.PlanFree, nil
		}
		return "", "", fmt.Errorf("no profile for stripe customer %s: %w", customerID, err)
	}
	return profile.UserID, profile.Plan, nil
}

// syncCheckoutSessionByID is the pull-path twin of the webhook: fetch one
// session by id and run it through the same apply routine.
func syncCheckoutSessionByID(ctx context.Context, userID, email, sessionID string) error {
	sess, err := session.Get(sessionID, nil)
	if err != nil {
		return fmt.Errorf("checkout session lookup failed: %w", err)
	}
	if !sessionBelongsToUser(sess, userID, email) {
		return errNoCompletedSession
	}
	if !sessionSettled(sess) {
		return errNoCompletedSession
	}
	return applyCheckoutSession(ctx, userID, sess)
}

// syncLatestCheckout scans the caller's recent checkout sessions for the
// newest settled one that belongs to them and applies it. Exists because
// webhook delivery is not guaranteed (local dev, delivery outages).
func syncLatestCheckout(ctx context.Context, userID, email string) (string, error) {
	if db == nil {
		return "", errNoCompletedSession
	}
	profile, err := getProfileByUserID(ctx, userID)
	if err != nil || profile.StripeCustomerID == "" {
		return "", errNoCompletedSession
	}

	params := &stripe.CheckoutSessionListParams{
		Customer: stripe.String(profile.StripeCustomerID),
	}
	params.Limit = stripe.Int64(10)

	it := session.List(params)
	for it.Next() {
		sess := it.CheckoutSession()
		if !sessionSettled(sess) {
			continue
		}
		if !sessionBelongsToUser(sess, userID, email) {
			continue
		}
		if err := applyCheckoutSession(ctx, userID, sess); err != nil {
			return "", err
		}
		return sess.ID, nil
	}
	if err := it.Err(); err != nil {
		return "", fmt.Errorf("checkout session list failed: %w", err)
	}
	return "", errNoCompletedSession
}
