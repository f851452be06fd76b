package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/config"
	"github.com/ItsBrandon78/careerheap.com-sub001/app/models"

	_ "github.com/lib/pq"
)

// Tables this package expects:
//
//	billing_profiles (user_id PK, email, plan, stripe_customer_id,
//	    stripe_subscription_id, subscription_status, cancel_at_period_end,
//	    current_period_end, usage_total)
//	tool_usage (user_id, tool_slug, used, PRIMARY KEY (user_id, tool_slug))
//	tool_runs (actor_id, tool_slug, input_hash, status, created_at)
var db *sql.DB

// MustInitDB initializes the global db and panics/logs fatally on error.
func MustInitDB() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s",
		cfg.DB.Username,
		cfg.DB.Password,
		cfg.DB.URL,
		cfg.DB.Port,
	)

	d, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("sql.Open: %v", err)
	}

	if err := d.Ping(); err != nil {
		log.Fatalf("db.Ping: %v", err)
	}

	log.Println("Connected to Postgres")
	db = d
}

func getProfileByUserID(ctx context.Context, userID string) (models.BillingProfile, error) {
	return scanProfile(ctx, `
		SELECT user_id, email, plan, stripe_customer_id, stripe_subscription_id,
		       subscription_status, cancel_at_period_end, current_period_end, usage_total
		FROM billing_profiles
		WHERE user_id = $1;
	`, userID)
}

// Reconciler persistence seam: tests swap these to drive the merge
// semantics against an in-memory store.
var (
	getProfileByStripeCustomer = getProfileByStripeCustomerPQ
	applyBillingUpdate         = applyBillingUpdatePQ
)

func getProfileByStripeCustomerPQ(ctx context.Context, customerID string) (models.BillingProfile, error) {
	if db == nil {
		return models.BillingProfile{}, sql.ErrNoRows
	}
	return scanProfile(ctx, `
		SELECT user_id, email, plan, stripe_customer_id, stripe_subscription_id,
		       subscription_status, cancel_at_period_end, current_period_end, usage_total
		FROM billing_profiles
		WHERE stripe_customer_id = $1;
	`, customerID)
}

func scanProfile(ctx context.Context, query, arg string) (models.BillingProfile, error) {
	var (
		p         models.BillingProfile
		email     sql.NullString
		custID    sql.NullString
		subID     sql.NullString
		subStatus sql.NullString
		periodEnd sql.NullTime
	)
	err := db.QueryRowContext(ctx, query, arg).Scan(
		&p.UserID,
		&email,
		&p.Plan,
		&custID,
		&subID,
		&subStatus,
		&p.CancelAtPeriodEnd,
		&periodEnd,
		&p.UsageTotal,
	)
	if err != nil {
		return models.BillingProfile{}, err
	}
	p.Email = email.String
	p.StripeCustomerID = custID.String
	p.StripeSubscriptionID = subID.String
	p.SubscriptionStatus = models.SubscriptionStatus(subStatus.String)
	if periodEnd.Valid {
		p.CurrentPeriodEnd = periodEnd.Time
	}
	return p, nil
}

// insertDefaultProfile creates the free-tier row for a first-seen account.
func insertDefaultProfile(ctx context.Context, userID, email string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO billing_profiles (user_id, email, plan, usage_total)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (user_id) DO NOTHING;
	`, userID, nullIfEmpty(email), models.PlanFree)
	return err
}

func setStripeCustomerID(ctx context.Context, userID, customerID string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE billing_profiles
		SET stripe_customer_id = $1
		WHERE user_id = $2;
	`, customerID, userID)
	return err
}

// billingUpdate is the full set of Stripe-derived fields written in one
// overwrite. Repeated or out-of-order application is safe because nothing
// here is a delta.
type billingUpdate struct {
	Plan                 models.Plan
	StripeCustomerID     string
	StripeSubscriptionID string
	SubscriptionStatus   models.SubscriptionStatus
	CancelAtPeriodEnd    bool
	CurrentPeriodEnd     time.Time
}

// mergeBillingUpdate applies u over cur with the same semantics the upsert
// below enforces in SQL: full-field overwrite, except a stored lifetime plan
// never downgrades and an absent customer id never clears a stored one.
func mergeBillingUpdate(cur models.BillingProfile, userID string, u billingUpdate) models.BillingProfile {
	next := cur
	next.UserID = userID
	next.Plan = u.Plan
	if cur.Plan == models.PlanLifetime {
		next.Plan = models.PlanLifetime
	}
	next.StripeCustomerID = u.StripeCustomerID
	if u.StripeCustomerID == "" {
		next.StripeCustomerID = cur.StripeCustomerID
	}
	next.StripeSubscriptionID = u.StripeSubscriptionID
	next.SubscriptionStatus = u.SubscriptionStatus
	next.CancelAtPeriodEnd = u.CancelAtPeriodEnd
	next.CurrentPeriodEnd = u.CurrentPeriodEnd
	return next
}

// applyBillingUpdatePQ upserts the Stripe-owned fields for one account.
// plan=lifetime is guarded in SQL so no later event can downgrade it.
func applyBillingUpdatePQ(ctx context.Context, userID string, u billingUpdate) error {
	if db == nil {
		// Allow test runs without a backing DB.
		return nil
	}
	var periodEnd sql.NullTime
	if !u.CurrentPeriodEnd.IsZero() {
		periodEnd = sql.NullTime{Time: u.CurrentPeriodEnd, Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO billing_profiles (
			user_id, plan, stripe_customer_id, stripe_subscription_id,
			subscription_status, cancel_at_period_end, current_period_end, usage_total
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
		ON CONFLICT (user_id) DO UPDATE SET
			plan = CASE WHEN billing_profiles.plan = 'lifetime' THEN billing_profiles.plan ELSE EXCLUDED.plan END,
			stripe_customer_id = COALESCE(EXCLUDED.stripe_customer_id, billing_profiles.stripe_customer_id),
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			subscription_status = EXCLUDED.subscription_status,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			current_period_end = EXCLUDED.current_period_end;
	`,
		userID,
		u.Plan,
		nullIfEmpty(u.StripeCustomerID),
		nullIfEmpty(u.StripeSubscriptionID),
		nullIfEmpty(string(u.SubscriptionStatus)),
		u.CancelAtPeriodEnd,
		periodEnd,
	)
	return err
}

func insertToolRun(ctx context.Context, rec models.ToolRunRecord) error {
	if db == nil {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO tool_runs (actor_id, tool_slug, input_hash, status, created_at)
		VALUES ($1, $2, $3, $4, now());
	`, rec.ActorID, rec.ToolSlug, rec.InputHash, rec.Status)
	return err
}

func getToolUsageByUser(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT tool_slug, used
		FROM tool_usage
		WHERE user_id = $1;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byTool := map[string]int{}
	for rows.Next() {
		var slug string
		var used int
		if err := rows.Scan(&slug, &used); err != nil {
			return nil, err
		}
		byTool[slug] = used
	}
	return byTool, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
