package models

// FreeLifetimeLimit is the total number of metered tool runs a free-tier
// actor gets for the lifetime of that actor identity.
const FreeLifetimeLimit = 3

// UnlimitedUses is the usesRemaining sentinel for paid plans.
const UnlimitedUses = -1

// UsageState is one actor's consumption record.
type UsageState struct {
	Total  int            `json:"total"`
	ByTool map[string]int `json:"byTool,omitempty"`
}

// UsageSummary is what the client sees: whether the actor may run a metered
// tool right now and how much quota is left.
type UsageSummary struct {
	Plan          Plan           `json:"plan"`
	CanUse        bool           `json:"canUse"`
	UsesRemaining int            `json:"usesRemaining"`
	UsageTotal    int            `json:"usageTotal"`
	ByTool        map[string]int `json:"byTool,omitempty"`
}

type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
	RunLocked  RunStatus = "locked"
)

// ToolRunRecord is the audit row written for each metered invocation attempt.
type ToolRunRecord struct {
	ActorID   string    `db:"actor_id"`
	ToolSlug  string    `db:"tool_slug"`
	InputHash string    `db:"input_hash"`
	Status    RunStatus `db:"status"`
}
