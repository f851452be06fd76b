package app

import (
	"context"
	"log"
	"net/http"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/config"
	"github.com/ItsBrandon78/careerheap.com-sub001/app/models"

	"github.com/gin-gonic/gin"
)

// PlannerToolSlug names the single metered tool this service currently
// gates.
const PlannerToolSlug = "career-switch-planner"

// entitledPlanForActor loads the actor's effective plan. Any lookup failure
// or missing profile resolves to free, never an error: the metered surface
// fails open to the anonymous free tier.
func entitledPlanForActor(ctx context.Context, actor Actor) models.Plan {
	if !actor.Authenticated || db == nil {
		return models.PlanFree
	}
	profile, err := getProfileByUserID(ctx, actor.ID)
	if err != nil {
		return models.PlanFree
	}
	return ResolveEntitledPlan(profile)
}

// usageForActor reads current consumption without consuming: DB counters
// for accounts, the usage cookie for anonymous visitors.
func usageForActor(c *gin.Context, actor Actor) models.UsageState {
	if actor.Authenticated {
		st, err := accountUsage(c.Request.Context(), actor.ID)
		if err != nil {
			log.Printf("usage lookup failed actor=%s err=%v", actor.ID, err)
			return models.UsageState{}
		}
		return st
	}
	return readCookieUsage(c, actor.ID)
}

// GetUsageSummary reports quota state for the caller, honoring override
// query params, which take strict precedence over persisted state.
func GetUsageSummary(c *gin.Context) {
	if summary, ok, err := overrideSummary(c); ok {
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput, "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
		return
	}

	actor := resolveActor(c)
	persistAnonID(c, actor)

	plan := entitledPlanForActor(c.Request.Context(), actor)
	summary := BuildUsageSummary(plan, usageForActor(c, actor))
	c.JSON(http.StatusOK, summary)
}

// RunPlannerTool is the metered tool invocation endpoint: rate limit, quota
// pre-check, generation, audit record, consumption, updated summary.
func RunPlannerTool(limiter *RateLimiter, planner *plannerClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := resolveActor(c)
		persistAnonID(c, actor)

		if !limitRequest(c, limiter, PlannerToolSlug, actor) {
			return
		}

		var req PlannerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput, "message": "invalid request body"})
			return
		}
		if err := req.validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput, "message": err.Error()})
			return
		}
		hash := req.inputHash()

		summary, overridden, err := overrideSummary(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput, "message": err.Error()})
			return
		}
		if !overridden {
			plan := entitledPlanForActor(c.Request.Context(), actor)
			summary = BuildUsageSummary(plan, usageForActor(c, actor))
		}

		if !summary.CanUse {
			recordRun(c.Request.Context(), actor.ID, hash, models.RunLocked)
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error": models.ErrLocked,
				"usage": summary,
			})
			return
		}

		plan, err := planner.GeneratePlan(c.Request.Context(), req)
		if err != nil {
			log.Printf("plan generation failed actor=%s err=%v", actor.ID, err)
			recordRun(c.Request.Context(), actor.ID, hash, models.RunFailed)
			cfg, _ := config.LoadConfig()
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   models.ErrGenerationFailed,
				"message": errorDetail(cfg, err, "plan generation failed"),
			})
			return
		}

		// Consumption re-validates quota inside the same call, narrowing
		// the race between the pre-check above and the increment.
		var updated models.UsageSummary
		if overridden {
			updated = summary
			if updated.Plan == models.PlanFree && updated.UsesRemaining > 0 {
				updated.UsesRemaining--
				updated.UsageTotal++
				updated.CanUse = updated.UsesRemaining > 0
			}
		} else if actor.Authenticated && db != nil {
			updated, err = consumeAccountUsage(c.Request.Context(), actor.ID, actor.Email, PlannerToolSlug)
			if err != nil {
				log.Printf("usage consumption failed actor=%s err=%v", actor.ID, err)
				recordRun(c.Request.Context(), actor.ID, hash, models.RunFailed)
				c.JSON(http.StatusInternalServerError, gin.H{"error": models.ErrIngestFailed})
				return
			}
		} else {
			updated = consumeCookieUsage(c, actor.ID, summary.Plan, PlannerToolSlug)
		}

		recordRun(c.Request.Context(), actor.ID, hash, models.RunSuccess)
		c.JSON(http.StatusOK, gin.H{
			"plan":  plan,
			"usage": updated,
		})
	}
}

func recordRun(ctx context.Context, actorID, hash string, status models.RunStatus) {
	err := insertToolRun(ctx, models.ToolRunRecord{
		ActorID:   actorID,
		ToolSlug:  PlannerToolSlug,
		InputHash: hash,
		Status:    status,
	})
	if err != nil {
		log.Printf("tool run record insert failed actor=%s status=%s err=%v", actorID, status, err)
	}
}
