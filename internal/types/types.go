package types

import "time"

// UserRole identifies which dashboard a logged-in user sees
type UserRole string

const (
	RoleAdmin UserRole = "ADMIN"
	RoleAgent UserRole = "AGENT"
)

// AgentStatus represents an agent's current presence state
type AgentStatus string

const (
	StatusOnline  AgentStatus = "ONLINE"
	StatusOffline AgentStatus = "OFFLINE"
	StatusBusy    AgentStatus = "BUSY"
	StatusOnCall  AgentStatus = "ON_CALL"
	StatusAway    AgentStatus = "AWAY"
)

// AllStatuses returns all defined presence states
var AllStatuses = []AgentStatus{
	StatusOnline,
	StatusOffline,
	StatusBusy,
	StatusOnCall,
	StatusAway,
}

// ValidStatus reports whether s is one of the defined presence states
func ValidStatus(s AgentStatus) bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// DailyStats holds one agent's operational metrics for a single calendar date.
// At most one entry exists per (agent, date) pair; the activity table fills
// the call counts and the metrics table patches AHT and resolution rate into
// the same entry.
type DailyStats struct {
	Date           string `json:"date"` // YYYY-MM-DD
	AnsweredCalls  int    `json:"answeredCalls"`
	AbandonedCalls int    `json:"abandonedCalls"`
	Transactions   int    `json:"transactions"`
	AHT            string `json:"aht"`            // handle-time string, "0s" until the metrics table fills it
	ResolutionRate int    `json:"resolutionRate"` // 0-100
}

// Kpis are the fixed quality sub-scores of an evaluation, each 0-100
type Kpis struct {
	Capture   float64 `json:"capture"`
	Etiquette float64 `json:"etiquette"`
	Solving   float64 `json:"solving"`
	Product   float64 `json:"product"`
	Promo     float64 `json:"promo"`
	Upsell    float64 `json:"upsell"`
}

// Evaluation is one quality-assurance review event. Evaluations are
// append-only: two reviews on the same date are two distinct events.
type Evaluation struct {
	Date             string  `json:"date"`
	Evaluator        string  `json:"evaluator,omitempty"`
	Score            float64 `json:"score"` // 0-100, rescaled from the source's 1-5 rating
	Kpis             Kpis    `json:"kpis"`
	PositivePoints   string  `json:"positivePoints,omitempty"`
	ImprovementAreas string  `json:"improvementAreas,omitempty"`
}

// Agent is the per-person aggregate built by a reconciliation pass.
// Exactly one Agent exists per real-world person even when the three
// source tables key them differently.
type Agent struct {
	ID          string       `json:"id"` // email when known at creation, otherwise a name slug
	Name        string       `json:"name"`
	Email       string       `json:"email,omitempty"`
	Status      AgentStatus  `json:"status"`
	History     []DailyStats `json:"history"`
	Evaluations []Evaluation `json:"evaluations"`
}

// Snapshot is the complete output of one reconciliation pass
type Snapshot struct {
	Agents         []*Agent  `json:"agents"`
	AvailableDates []string  `json:"availableDates"` // ascending, deduplicated
	SyncedAt       time.Time `json:"syncedAt"`
}
