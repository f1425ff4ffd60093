package health

import "time"

// Action identifies which Moltbook operation a health entry covers
type Action string

const (
	ActionAuth    Action = "auth"
	ActionPost    Action = "post"
	ActionComment Action = "comment"
	ActionBrowse  Action = "browse"
	ActionUpvote  Action = "upvote"
)

// HealthStatus represents the health state of an action
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusCooldown  HealthStatus = "cooldown"
	StatusUnknown   HealthStatus = "unknown"
)

// ActionHealth tracks the health of a single Moltbook action
type ActionHealth struct {
	Action        Action       `json:"action"`
	Status        HealthStatus `json:"status"`
	LastChecked   time.Time    `json:"lastChecked"`
	LastSuccessAt time.Time    `json:"lastSuccessAt"`
	FailureCount  int          `json:"failureCount"`
	LastError     string       `json:"lastError,omitempty"`
	CooldownUntil time.Time    `json:"cooldownUntil"`
}
