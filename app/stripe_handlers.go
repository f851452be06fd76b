package app

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/config"
	"github.com/ItsBrandon78/careerheap.com-sub001/app/models"
	"github.com/ItsBrandon78/careerheap.com-sub001/auth"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

type checkoutRequest struct {
	Plan    models.Plan    `json:"plan"`
	Cadence models.Cadence `json:"cadence"`
}

// validate rejects anything outside the fixed plan/cadence enumeration
// before any billing logic runs.
func (r checkoutRequest) validate() error {
	switch r.Plan {
	case models.PlanPro:
		if r.Cadence != models.CadenceMonthly && r.Cadence != models.CadenceYearly {
			return errors.New("pro plan requires cadence monthly or yearly")
		}
	case models.PlanLifetime:
		if r.Cadence != "" && r.Cadence != models.CadenceLifetime {
			return errors.New("lifetime plan takes no cadence")
		}
	default:
		return errors.New("plan must be pro or lifetime")
	}
	return nil
}

// CreateCheckoutSession starts a Stripe Checkout Session for the
// authenticated user's requested plan and cadence.
func CreateCheckoutSession(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": models.ErrAuthRequired})
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput, "message": "invalid request body"})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput, "message": err.Error()})
		return
	}

	// Block duplicate upgrades to a plan the account already has.
	if db != nil {
		if profile, err := getProfileByUserID(c.Request.Context(), claims.Subject); err == nil {
			entitled := ResolveEntitledPlan(profile)
			if entitled == models.PlanLifetime || (req.Plan == models.PlanPro && entitled == models.PlanPro) {
				c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput, "message": "already entitled to this plan"})
				return
			}
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("stripe checkout config load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	priceID := ""
	mode := stripe.CheckoutSessionModeSubscription
	switch {
	case req.Plan == models.PlanLifetime:
		priceID = cfg.Stripe.PriceLifetime
		mode = stripe.CheckoutSessionModePayment
	case req.Cadence == models.CadenceYearly:
		priceID = cfg.Stripe.PriceProYearly
	default:
		priceID = cfg.Stripe.PriceProMonthly
	}

	frontendURL := strings.TrimRight(cfg.Stripe.FrontendURL, "/")
	if priceID == "" || frontendURL == "" {
		log.Printf("missing Stripe config: price_id=%t frontend_url=%t", priceID != "", frontendURL != "")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	stripeCustomerID, err := ensureStripeCustomer(c.Request.Context(), claims.Subject, claims.Email)
	if err != nil {
		log.Printf("ensureStripeCustomer failed for sub=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare billing"})
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(mode)),
		Customer: stripe.String(stripeCustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			metaUserID: claims.Subject,
			metaPlan:   string(req.Plan),
		},
		SuccessURL: stripe.String(frontendURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(frontendURL + "/pricing"),
	}

	sess, err := session.New(params)
	if err != nil {
		log.Printf("stripe checkout session failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": sess.URL})
}

// StripeWebhook handles Stripe billing events and converges profile state.
func StripeWebhook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Printf("stripe webhook read failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("stripe webhook config load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	endpointSecret := cfg.Stripe.WebhookSecret
	if endpointSecret == "" {
		log.Printf("stripe webhook secret missing")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		sigHeader,
		endpointSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		log.Printf("stripe webhook signature failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	// Past this point failures return 500 so Stripe retries delivery.
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			log.Printf("stripe session unmarshal failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid session payload"})
			return
		}
		userID, err := resolveSessionUser(c.Request.Context(), &sess)
		if err != nil {
			log.Printf("stripe session account resolution failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
			return
		}
		if err := applyCheckoutSession(c.Request.Context(), userID, &sess); err != nil {
			log.Printf("stripe checkout apply failed user=%s err=%v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
			return
		}
	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			log.Printf("stripe subscription unmarshal failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid subscription payload"})
			return
		}
		if err := applySubscriptionEvent(c.Request.Context(), &sub); err != nil {
			log.Printf("stripe subscription apply failed err=%v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
			return
		}
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			log.Printf("stripe subscription unmarshal failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid subscription payload"})
			return
		}
		if err := applySubscriptionDeleted(c.Request.Context(), &sub); err != nil {
			log.Printf("stripe subscription delete apply failed err=%v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
			return
		}
	default:
		// Intentionally ignore unhandled events.
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreatePortalSession creates a Stripe Customer Portal session for the
// authenticated user's own customer record.
func CreatePortalSession(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": models.ErrAuthRequired})
		return
	}
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db not initialized"})
		return
	}

	profile, err := getProfileByUserID(c.Request.Context(), claims.Subject)
	if err != nil {
		log.Printf("portal lookup failed sub=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load customer"})
		return
	}
	if profile.StripeCustomerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput, "message": "stripe customer missing for user"})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("portal config load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	frontendURL := strings.TrimRight(cfg.Stripe.FrontendURL, "/")
	if frontendURL == "" {
		log.Printf("missing Stripe config: frontend_url=false")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(profile.StripeCustomerID),
		ReturnURL: stripe.String(frontendURL + "/settings/billing"),
	}

	sess, err := portal.New(params)
	if err != nil {
		log.Printf("stripe portal session failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create portal session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": sess.URL})
}

type syncRequest struct {
	SessionID string `json:"sessionId"`
}

// SyncCheckoutSession applies one checkout session by id to the caller's
// profile. Manual retry avenue for missed webhooks.
func SyncCheckoutSession(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": models.ErrAuthRequired})
		return
	}

	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SessionID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput, "message": "sessionId is required"})
		return
	}

	err := syncCheckoutSessionByID(c.Request.Context(), claims.Subject, claims.Email, req.SessionID)
	if err != nil {
		if errors.Is(err, errNoCompletedSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": errNoCompletedSession.Error()})
			return
		}
		log.Printf("checkout sync failed sub=%s session=%s err=%v", claims.Subject, req.SessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": models.ErrIngestFailed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "sessionId": req.SessionID})
}

// SyncLatestCheckout scans the caller's recent sessions for the newest
// settled one that belongs to them and applies it.
func SyncLatestCheckout(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": models.ErrAuthRequired})
		return
	}

	sessionID, err := syncLatestCheckout(c.Request.Context(), claims.Subject, claims.Email)
	if err != nil {
		if errors.Is(err, errNoCompletedSession) {
			c.JSON(http.StatusNotFound, gin.H{"error": errNoCompletedSession.Error()})
			return
		}
		log.Printf("latest checkout sync failed sub=%s err=%v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": models.ErrIngestFailed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "sessionId": sessionID})
}
