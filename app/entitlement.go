// Package app resolves plan entitlement and free-tier usage for actors.
package app

import (
	"errors"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/models"

	"github.com/gin-gonic/gin"
)

// ResolveEntitledPlan maps stored plan plus live subscription status to the
// effective plan. lifetime always wins. past_due still grants pro so users
// are not hard-cut mid payment retry.
func ResolveEntitledPlan(p models.BillingProfile) models.Plan {
	if p.Plan == models.PlanLifetime {
		return models.PlanLifetime
	}
	switch p.SubscriptionStatus {
	case models.SubStatusTrialing, models.SubStatusActive, models.SubStatusPastDue:
		return models.PlanPro
	}
	return models.PlanFree
}

// BuildUsageSummary computes quota state for one actor. Paid plans are
// unlimited regardless of the counter value.
func BuildUsageSummary(plan models.Plan, usage models.UsageState) models.UsageSummary {
	if plan != models.PlanFree {
		return models.UsageSummary{
			Plan:          plan,
			CanUse:        true,
			UsesRemaining: models.UnlimitedUses,
			UsageTotal:    usage.Total,
			ByTool:        usage.ByTool,
		}
	}
	remaining := models.FreeLifetimeLimit - usage.Total
	if remaining < 0 {
		remaining = 0
	}
	return models.UsageSummary{
		Plan:          models.PlanFree,
		CanUse:        usage.Total < models.FreeLifetimeLimit,
		UsesRemaining: remaining,
		UsageTotal:    usage.Total,
		ByTool:        usage.ByTool,
	}
}

var errBadOverride = errors.New("invalid override parameters")

// overrideSummary builds a summary from ?plan= / ?usesRemaining= query
// params. Overrides exist for demos and testing and take strict precedence
// over persisted state. Returns ok=false when no override param is present.
func overrideSummary(c *gin.Context) (models.UsageSummary, bool, error) {
	planParam := c.Query("plan")
	usesParam := c.Query("usesRemaining")
	if planParam == "" && usesParam == "" {
		return models.UsageSummary{}, false, nil
	}

	plan := models.PlanFree
	if planParam != "" {
		plan = models.Plan(planParam)
		if !models.ValidPlan(plan) {
			return models.UsageSummary{}, true, errBadOverride
		}
	}

	if plan != models.PlanFree {
		return models.UsageSummary{
			Plan:          plan,
			CanUse:        true,
			UsesRemaining: models.UnlimitedUses,
		}, true, nil
	}

	remaining := models.FreeLifetimeLimit
	if usesParam != "" {
		n, err := parsePositiveInt(usesParam)
		if err != nil {
			return models.UsageSummary{}, true, errBadOverride
		}
		remaining = n
	}
	// Bound enforcement: an override can never mint more than the free
	// lifetime limit.
	if remaining > models.FreeLifetimeLimit {
		remaining = models.FreeLifetimeLimit
	}

	return models.UsageSummary{
		Plan:          models.PlanFree,
		CanUse:        remaining > 0,
		UsesRemaining: remaining,
		UsageTotal:    models.FreeLifetimeLimit - remaining,
	}, true, nil
}
