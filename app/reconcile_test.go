package app

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/models"

	"github.com/stripe/stripe-go/v79"
)

// memoryProfiles swaps the reconciler's persistence seam for a map so the
// merge semantics can be asserted without Postgres.
type memoryProfiles struct {
	rows map[string]models.BillingProfile
}

func installMemoryProfiles(t *testing.T) *memoryProfiles {
	t.Helper()
	m := &memoryProfiles{rows: map[string]models.BillingProfile{}}

	prevApply := applyBillingUpdate
	prevLookup := getProfileByStripeCustomer
	applyBillingUpdate = func(ctx context.Context, userID string, u billingUpdate) error {
		m.rows[userID] = mergeBillingUpdate(m.rows[userID], userID, u)
		return nil
	}
	getProfileByStripeCustomer = func(ctx context.Context, customerID string) (models.BillingProfile, error) {
		for _, p := range m.rows {
			if p.StripeCustomerID == customerID {
				return p, nil
			}
		}
		return models.BillingProfile{}, sql.ErrNoRows
	}
	t.Cleanup(func() {
		applyBillingUpdate = prevApply
		getProfileByStripeCustomer = prevLookup
	})
	return m
}

func TestPlanFromCheckoutSession(t *testing.T) {
	cases := []struct {
		name     string
		metadata map[string]string
		want     models.Plan
		ok       bool
	}{
		{"pro", map[string]string{"plan": "pro"}, models.PlanPro, true},
		{"lifetime", map[string]string{"plan": "lifetime"}, models.PlanLifetime, true},
		{"free rejected", map[string]string{"plan": "free"}, "", false},
		{"unknown", map[string]string{"plan": "platinum"}, "", false},
		{"missing", map[string]string{}, "", false},
		{"nil metadata", nil, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := &stripe.CheckoutSession{Metadata: tc.metadata}
			got, ok := planFromCheckoutSession(sess)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("planFromCheckoutSession = (%q,%v), want (%q,%v)", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestSessionBelongsToUser(t *testing.T) {
	t.Run("metadata match wins", func(t *testing.T) {
		sess := &stripe.CheckoutSession{Metadata: map[string]string{"userId": "user-1"}}
		if !sessionBelongsToUser(sess, "user-1", "") {
			t.Fatalf("expected metadata match")
		}
		if sessionBelongsToUser(sess, "user-2", "") {
			t.Fatalf("metadata mismatch must not match")
		}
	})

	t.Run("metadata mismatch blocks email fallback", func(t *testing.T) {
		sess := &stripe.CheckoutSession{
			Metadata:      map[string]string{"userId": "user-1"},
			CustomerEmail: "a@example.test",
		}
		if sessionBelongsToUser(sess, "user-2", "a@example.test") {
			t.Fatalf("recorded account id must take precedence over email")
		}
	})

	t.Run("email fallback is case-insensitive", func(t *testing.T) {
		sess := &stripe.CheckoutSession{
			Metadata: map[string]string{},
			CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
				Email: "User@Example.Test",
			},
		}
		if !sessionBelongsToUser(sess, "user-1", "user@example.test") {
			t.Fatalf("expected case-insensitive email match")
		}
	})

	t.Run("no identifiers", func(t *testing.T) {
		sess := &stripe.CheckoutSession{Metadata: map[string]string{}}
		if sessionBelongsToUser(sess, "user-1", "") {
			t.Fatalf("no identifiers must not match")
		}
	})
}

func TestSessionSettled(t *testing.T) {
	cases := []struct {
		name string
		sess *stripe.CheckoutSession
		want bool
	}{
		{
			"subscription complete",
			&stripe.CheckoutSession{
				Status: stripe.CheckoutSessionStatusComplete,
				Mode:   stripe.CheckoutSessionModeSubscription,
			},
			true,
		},
		{
			"subscription open",
			&stripe.CheckoutSession{
				Status: stripe.CheckoutSessionStatusOpen,
				Mode:   stripe.CheckoutSessionModeSubscription,
			},
			false,
		},
		{
			"payment paid",
			&stripe.CheckoutSession{
				Status:        stripe.CheckoutSessionStatusComplete,
				Mode:          stripe.CheckoutSessionModePayment,
				PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
			},
			true,
		},
		{
			"payment no_payment_required",
			&stripe.CheckoutSession{
				Status:        stripe.CheckoutSessionStatusComplete,
				Mode:          stripe.CheckoutSessionModePayment,
				PaymentStatus: stripe.CheckoutSessionPaymentStatusNoPaymentRequired,
			},
			true,
		},
		{
			"payment unpaid",
			&stripe.CheckoutSession{
				Status:        stripe.CheckoutSessionStatusComplete,
				Mode:          stripe.CheckoutSessionModePayment,
				PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
			},
			false,
		},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sessionSettled(tc.sess); got != tc.want {
				t.Fatalf("sessionSettled = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestApplyCheckoutSessionIdempotent(t *testing.T) {
	store := installMemoryProfiles(t)
	periodEnd := time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC)
	sess := &stripe.CheckoutSession{
		ID:       "cs_1",
		Mode:     stripe.CheckoutSessionModeSubscription,
		Status:   stripe.CheckoutSessionStatusComplete,
		Metadata: map[string]string{"userId": "user-1", "plan": "pro"},
		Customer: &stripe.Customer{ID: "cus_1"},
		Subscription: &stripe.Subscription{
			ID:               "sub_1",
			Status:           stripe.SubscriptionStatusActive,
			CurrentPeriodEnd: periodEnd.Unix(),
		},
	}

	if err := applyCheckoutSession(context.Background(), "user-1", sess); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	first := store.rows["user-1"]
	if first.Plan != models.PlanPro || first.StripeCustomerID != "cus_1" ||
		first.SubscriptionStatus != models.SubStatusActive || !first.CurrentPeriodEnd.Equal(periodEnd) {
		t.Fatalf("profile after first apply = %+v", first)
	}

	if err := applyCheckoutSession(context.Background(), "user-1", sess); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if second := store.rows["user-1"]; second != first {
		t.Fatalf("duplicate delivery changed the profile: %+v vs %+v", second, first)
	}
}

func TestSubscriptionDeletedKeepsLifetime(t *testing.T) {
	store := installMemoryProfiles(t)
	store.rows["user-1"] = models.BillingProfile{
		UserID:           "user-1",
		Plan:             models.PlanLifetime,
		StripeCustomerID: "cus_1",
	}

	sub := &stripe.Subscription{ID: "sub_1", Customer: &stripe.Customer{ID: "cus_1"}}
	if err := applySubscriptionDeleted(context.Background(), sub); err != nil {
		t.Fatalf("applySubscriptionDeleted: %v", err)
	}

	got := store.rows["user-1"]
	if got.Plan != models.PlanLifetime {
		t.Fatalf("lifetime plan downgraded to %q", got.Plan)
	}
	if got.SubscriptionStatus != models.SubStatusCanceled {
		t.Fatalf("status = %q, want canceled", got.SubscriptionStatus)
	}
}

func TestSubscriptionDeletedDowngradesSubscriber(t *testing.T) {
	store := installMemoryProfiles(t)
	store.rows["user-2"] = models.BillingProfile{
		UserID:             "user-2",
		Plan:               models.PlanPro,
		StripeCustomerID:   "cus_2",
		SubscriptionStatus: models.SubStatusActive,
	}

	sub := &stripe.Subscription{ID: "sub_2", Customer: &stripe.Customer{ID: "cus_2"}}
	if err := applySubscriptionDeleted(context.Background(), sub); err != nil {
		t.Fatalf("applySubscriptionDeleted: %v", err)
	}

	got := store.rows["user-2"]
	if got.Plan != models.PlanFree || got.SubscriptionStatus != models.SubStatusCanceled {
		t.Fatalf("profile after delete = %+v, want free/canceled", got)
	}
}

func TestActiveLikeStatus(t *testing.T) {
	active := []models.SubscriptionStatus{
		models.SubStatusTrialing, models.SubStatusActive, models.SubStatusPastDue,
	}
	inactive := []models.SubscriptionStatus{
		models.SubStatusCanceled, models.SubStatusUnpaid, models.SubStatusIncomplete,
		models.SubStatusIncompleteExpired, models.SubStatusPaused, models.SubStatusNone,
	}
	for _, s := range active {
		if !activeLikeStatus(s) {
			t.Fatalf("activeLikeStatus(%q) = false, want true", s)
		}
	}
	for _, s := range inactive {
		if activeLikeStatus(s) {
			t.Fatalf("activeLikeStatus(%q) = true, want false", s)
		}
	}
}
