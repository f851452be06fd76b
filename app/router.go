// Package app wires shared HTTP routes for both local and Lambda execution.
package app

import (
	"time"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/config"
	"github.com/ItsBrandon78/careerheap.com-sub001/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the shared HTTP router for both local and Lambda execution.
func NewRouter() (*gin.Engine, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	limiter := NewRateLimiter(
		cfg.RateLimit.Max,
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
		time.Minute,
	)
	planner := newPlannerClient(cfg.Planner)
	sanity := newSanityClient(cfg.Sanity)

	router.GET("/health", Health)
	router.POST("/api/stripe/webhook", StripeWebhook)
	router.GET("/api/posts", ListPosts(sanity))
	router.GET("/api/posts/:slug", GetPost(sanity))

	verifier, err := auth.NewVerifierFromEnv()
	if err != nil && !auth.AuthDisabled() {
		return nil, err
	}

	onAuthenticated := func(c *gin.Context, claims *auth.Claims) error {
		return UpsertProfileFromClaims(c.Request.Context(), claims)
	}

	// Metered surface: anonymous actors are first-class, so auth is
	// optional and a bad token degrades to the anonymous free tier.
	metered := router.Group("/")
	metered.Use(auth.Middleware(verifier, auth.MiddlewareConfig{
		Optional:        true,
		OnAuthenticated: onAuthenticated,
	}))
	metered.GET("/api/usage", GetUsageSummary)
	metered.POST("/api/tools/"+PlannerToolSlug, RunPlannerTool(limiter, planner))

	protected := router.Group("/")
	protected.Use(auth.Middleware(verifier, auth.MiddlewareConfig{
		OnAuthenticated: onAuthenticated,
	}))
	protected.GET("/me", Me)
	protected.POST("/api/billing/create-checkout-session", CreateCheckoutSession)
	protected.POST("/api/billing/portal-session", CreatePortalSession)
	protected.POST("/api/billing/sync", SyncCheckoutSession)
	protected.POST("/api/billing/sync-latest", SyncLatestCheckout)

	return router, nil
}
