package model

// Score categories.
const (
	CategoryUrgent      = "urgent"
	CategoryHigh        = "high"
	CategoryMedium      = "medium"
	CategoryLow         = "low"
	CategoryPRs         = "prs"
	CategoryReviews     = "reviews"
	CategoryCycleLead   = "cycle_lead"
	CategoryCycleMember = "cycle_member"
)

// Categories lists every category in display order.
var Categories = []string{
	CategoryUrgent, CategoryHigh, CategoryMedium, CategoryLow,
	CategoryPRs, CategoryReviews, CategoryCycleLead, CategoryCycleMember,
}

// ScoreEntry is one person's contribution total for a window.
type ScoreEntry struct {
	// Identity is the resolved slug, or "external:<normalized>" for people
	// outside the directory.
	Identity    string         `json:"identity"`
	Slug        string         `json:"slug,omitempty"`
	External    bool           `json:"external"`
	DisplayName string         `json:"display_name"`
	Team        string         `json:"team,omitempty"`
	Score       int            `json:"score"`
	Breakdown   map[string]int `json:"breakdown"`
	Counts      map[string]int `json:"counts"`
}
