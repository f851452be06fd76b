// Package app enforces the lifetime free quota for metered tools.
package app

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/models"

	"github.com/gin-gonic/gin"
)

const usageCookieName = "ch_usage"

// usageCookie maps actor ids to their consumption so counts survive the
// anonymous-to-authenticated transition on one browser.
type usageCookie struct {
	V      int                          `json:"v"`
	Actors map[string]models.UsageState `json:"actors"`
}

func decodeUsageCookie(raw string) usageCookie {
	empty := usageCookie{V: 1, Actors: map[string]models.UsageState{}}
	if raw == "" {
		return empty
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return empty
	}
	var uc usageCookie
	if err := json.Unmarshal(data, &uc); err != nil || uc.Actors == nil {
		// Tampered or stale cookie resets to zero usage, never an error.
		return empty
	}
	uc.V = 1
	return uc
}

func encodeUsageCookie(uc usageCookie) string {
	data, err := json.Marshal(uc)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

func readCookieUsage(c *gin.Context, actorID string) models.UsageState {
	raw, err := c.Cookie(usageCookieName)
	if err != nil {
		return models.UsageState{}
	}
	return decodeUsageCookie(raw).Actors[actorID]
}

func writeCookieUsage(c *gin.Context, actorID string, st models.UsageState) {
	raw, _ := c.Cookie(usageCookieName)
	uc := decodeUsageCookie(raw)
	uc.Actors[actorID] = st
	if encoded := encodeUsageCookie(uc); encoded != "" {
		c.SetCookie(usageCookieName, encoded, cookieMaxAge, "/", "", false, true)
	}
}

// consumeCookieUsage re-validates quota and increments the cookie-held
// counters for an anonymous actor. The re-check narrows the race between a
// summary fetch and consumption; cookie storage itself is not atomic across
// concurrent requests from the same client.
func consumeCookieUsage(c *gin.Context, actorID string, plan models.Plan, tool string) models.UsageSummary {
	st := readCookieUsage(c, actorID)
	summary := BuildUsageSummary(plan, st)
	if !summary.CanUse {
		return summary
	}
	st.Total++
	if st.ByTool == nil {
		st.ByTool = map[string]int{}
	}
	st.ByTool[tool]++
	writeCookieUsage(c, actorID, st)
	return BuildUsageSummary(plan, st)
}

// consumeAccountUsage is the authoritative server-side counter for
// signed-in accounts: one serializable transaction locks the profile row,
// re-validates quota, then increments the total and per-tool counters.
func consumeAccountUsage(ctx context.Context, userID, email, tool string) (models.UsageSummary, error) {
	if db == nil {
		// Allow test runs without a backing DB.
		return BuildUsageSummary(models.PlanFree, models.UsageState{Total: 1, ByTool: map[string]int{tool: 1}}), nil
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return models.UsageSummary{}, err
	}
	defer tx.Rollback()

	profile, err := getProfileForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Insert inside the tx so the row is visible to this snapshot.
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO billing_profiles (user_id, email, plan, usage_total)
				VALUES ($1, $2, $3, 0)
				ON CONFLICT (user_id) DO NOTHING;
			`, userID, nullIfEmpty(email), models.PlanFree); err != nil {
				return models.UsageSummary{}, err
			}
			profile, err = getProfileForUpdate(ctx, tx, userID)
		}
		if err != nil {
			return models.UsageSummary{}, err
		}
	}

	byTool, err := getToolUsageForUpdate(ctx, tx, userID)
	if err != nil {
		return models.UsageSummary{}, err
	}

	plan := ResolveEntitledPlan(profile)
	state := models.UsageState{Total: profile.UsageTotal, ByTool: byTool}
	summary := BuildUsageSummary(plan, state)
	if !summary.CanUse {
		// Quota exhausted: return the unmodified summary, nothing written.
		return summary, nil
	}

	state.Total++
	if state.ByTool == nil {
		state.ByTool = map[string]int{}
	}
	state.ByTool[tool]++

	if _, err := tx.ExecContext(ctx, `
		UPDATE billing_profiles
		SET usage_total = $1
		WHERE user_id = $2;
	`, state.Total, userID); err != nil {
		return models.UsageSummary{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tool_usage (user_id, tool_slug, used)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, tool_slug) DO UPDATE SET used = tool_usage.used + 1;
	`, userID, tool); err != nil {
		return models.UsageSummary{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.UsageSummary{}, err
	}

	return BuildUsageSummary(plan, state), nil
}

func getProfileForUpdate(ctx context.Context, tx *sql.Tx, userID string) (models.BillingProfile, error) {
	var (
		p         models.BillingProfile
		subStatus sql.NullString
	)
	err := tx.QueryRowContext(ctx, `
		SELECT plan, subscription_status, usage_total
		FROM billing_profiles
		WHERE user_id = $1
		FOR UPDATE;
	`, userID).Scan(&p.Plan, &subStatus, &p.UsageTotal)
	if err != nil {
		return models.BillingProfile{}, err
	}
	p.UserID = userID
	p.SubscriptionStatus = models.SubscriptionStatus(subStatus.String)
	return p, nil
}

func getToolUsageForUpdate(ctx context.Context, tx *sql.Tx, userID string) (map[string]int, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT tool_slug, used
		FROM tool_usage
		WHERE user_id = $1
		FOR UPDATE;
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

// accountUsage reads the stored counters without consuming.
func accountUsage(ctx context.Context, userID string) (models.UsageState, error) {
	if db == nil {
		return models.UsageState{}, nil
	}
	var total int
	err := db.QueryRowContext(ctx, `
		SELECT usage_total
		FROM billing_profiles
		WHERE user_id = $1;
	`, userID).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UsageState{}, nil
		}
		return models.UsageState{}, err
	}
	byTool, err := getToolUsageByUser(ctx, userID)
	if err != nil {
		return models.UsageState{}, err
	}
	return models.UsageState{Total: total, ByTool: byTool}, nil
}
