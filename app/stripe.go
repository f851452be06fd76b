package app

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/config"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/customer"
)

// InitStripe wires the Stripe API key from the environment.
func InitStripe() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config for stripe: %v", err)
	}
	stripe.Key = cfg.Stripe.SecretKey
}

// ensureStripeCustomer finds or creates a Stripe Customer for the given
// account. The stored id is reused when present; otherwise a customer is
// created with metadata userId = <userID> and the id is written back.
func ensureStripeCustomer(ctx context.Context, userID, email string) (string, error) {
	if db == nil {
		return "", errors.New("db not initialized")
	}
	if userID == "" {
		return "", errors.New("missing account id")
	}

	profile, err := getProfileByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		// First checkout attempt creates the profile lazily.
		if err := insertDefaultProfile(ctx, userID, email); err != nil {
			return "", err
		}
	}
	if profile.StripeCustomerID != "" {
		return profile.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Metadata: map[string]string{
			metaUserID: userID,
		},
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}

	if err := setStripeCustomerID(ctx, userID, cust.ID); err != nil {
		return "", err
	}
	return cust.ID, nil
}
