// Package app provides public health and authenticated identity endpoints.
package app

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/models"
	"github.com/ItsBrandon78/careerheap.com-sub001/auth"

	"github.com/gin-gonic/gin"
)

// Health is a public health check endpoint.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Me returns the authenticated user's billing profile and usage summary.
func Me(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": models.ErrAuthRequired})
		return
	}

	if db == nil {
		c.JSON(http.StatusOK, gin.H{
			"plan":  models.PlanFree,
			"usage": BuildUsageSummary(models.PlanFree, models.UsageState{}),
		})
		return
	}

	profile, err := getProfileByUserID(c.Request.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = UpsertProfileFromClaims(c.Request.Context(), claims)
			profile, err = getProfileByUserID(c.Request.Context(), claims.Subject)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
			return
		}
	}

	plan := ResolveEntitledPlan(profile)
	usage, err := accountUsage(c.Request.Context(), claims.Subject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	resp := gin.H{
		"plan":               plan,
		"subscriptionStatus": profile.SubscriptionStatus,
		"cancelAtPeriodEnd":  profile.CancelAtPeriodEnd,
		"usage":              BuildUsageSummary(plan, usage),
	}
	if !profile.CurrentPeriodEnd.IsZero() {
		resp["currentPeriodEnd"] = profile.CurrentPeriodEnd.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}
