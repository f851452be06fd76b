package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/models"

	"github.com/gin-gonic/gin"
)

func TestResolveEntitledPlanLifetimeAlwaysWins(t *testing.T) {
	statuses := []models.SubscriptionStatus{
		models.SubStatusNone,
		models.SubStatusTrialing,
		models.SubStatusActive,
		models.SubStatusPastDue,
		models.SubStatusCanceled,
		models.SubStatusUnpaid,
		models.SubStatusIncomplete,
		models.SubStatusIncompleteExpired,
		models.SubStatusPaused,
	}
	for _, status := range statuses {
		profile := models.BillingProfile{Plan: models.PlanLifetime, SubscriptionStatus: status}
		if got := ResolveEntitledPlan(profile); got != models.PlanLifetime {
			t.Fatalf("ResolveEntitledPlan(lifetime, %q) = %q, want lifetime", status, got)
		}
	}
}

func TestResolveEntitledPlanStatusMapping(t *testing.T) {
	cases := []struct {
		status models.SubscriptionStatus
		want   models.Plan
	}{
		{models.SubStatusTrialing, models.PlanPro},
		{models.SubStatusActive, models.PlanPro},
		{models.SubStatusPastDue, models.PlanPro},
		{models.SubStatusCanceled, models.PlanFree},
		{models.SubStatusUnpaid, models.PlanFree},
		{models.SubStatusIncomplete, models.PlanFree},
		{models.SubStatusIncompleteExpired, models.PlanFree},
		{models.SubStatusPaused, models.PlanFree},
		{models.SubStatusNone, models.PlanFree},
	}
	for _, tc := range cases {
		profile := models.BillingProfile{Plan: models.PlanFree, SubscriptionStatus: tc.status}
		if got := ResolveEntitledPlan(profile); got != tc.want {
			t.Fatalf("ResolveEntitledPlan(free, %q) = %q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestBuildUsageSummaryFreePlan(t *testing.T) {
	for total := 0; total <= 5; total++ {
		summary := BuildUsageSummary(models.PlanFree, models.UsageState{Total: total})
		wantRemaining := models.FreeLifetimeLimit - total
		if wantRemaining < 0 {
			wantRemaining = 0
		}
		if summary.UsesRemaining != wantRemaining {
			t.Fatalf("total=%d usesRemaining=%d, want %d", total, summary.UsesRemaining, wantRemaining)
		}
		if summary.CanUse != (total < models.FreeLifetimeLimit) {
			t.Fatalf("total=%d canUse=%v, want %v", total, summary.CanUse, total < models.FreeLifetimeLimit)
		}
	}
}

func TestBuildUsageSummaryPaidPlansUnlimited(t *testing.T) {
	for _, plan := range []models.Plan{models.PlanPro, models.PlanLifetime} {
		summary := BuildUsageSummary(plan, models.UsageState{Total: 1000})
		if !summary.CanUse || summary.UsesRemaining != models.UnlimitedUses {
			t.Fatalf("plan=%s summary=%+v, want unlimited", plan, summary)
		}
	}
}

func overrideForQuery(t *testing.T, query string) (models.UsageSummary, bool, error) {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/usage"+query, nil)
	return overrideSummary(c)
}

func TestOverrideSummaryAbsent(t *testing.T) {
	_, ok, err := overrideForQuery(t, "")
	if ok || err != nil {
		t.Fatalf("expected no override, got ok=%v err=%v", ok, err)
	}
}

func TestOverrideSummaryClampsRemaining(t *testing.T) {
	summary, ok, err := overrideForQuery(t, "?usesRemaining=99")
	if !ok || err != nil {
		t.Fatalf("expected override, got ok=%v err=%v", ok, err)
	}
	if summary.UsesRemaining != models.FreeLifetimeLimit {
		t.Fatalf("usesRemaining=%d, want clamp to %d", summary.UsesRemaining, models.FreeLifetimeLimit)
	}

	_, ok, err = overrideForQuery(t, "?usesRemaining=-2")
	if !ok || err == nil {
		t.Fatalf("negative override should be rejected, got ok=%v err=%v", ok, err)
	}
}

func TestOverrideSummaryZeroLocksActor(t *testing.T) {
	summary, ok, err := overrideForQuery(t, "?usesRemaining=0")
	if !ok || err != nil {
		t.Fatalf("expected override, got ok=%v err=%v", ok, err)
	}
	if summary.CanUse || summary.UsesRemaining != 0 {
		t.Fatalf("zero override should lock, got %+v", summary)
	}
}

func TestOverrideSummaryPlan(t *testing.T) {
	summary, ok, err := overrideForQuery(t, "?plan=pro")
	if !ok || err != nil {
		t.Fatalf("expected override, got ok=%v err=%v", ok, err)
	}
	if summary.Plan != models.PlanPro || !summary.CanUse || summary.UsesRemaining != models.UnlimitedUses {
		t.Fatalf("pro override = %+v", summary)
	}
}

func TestOverrideSummaryRejectsUnknownPlan(t *testing.T) {
	_, ok, err := overrideForQuery(t, "?plan=platinum")
	if !ok || err == nil {
		t.Fatalf("expected bad override error, got ok=%v err=%v", ok, err)
	}
}
