package service

import (
	"strings"
	"time"

	"github.com/okian/devpulse/internal/adapters/fanout"
	"github.com/okian/devpulse/internal/directory"
	"github.com/okian/devpulse/internal/domain/model"
	"github.com/okian/devpulse/internal/domain/timing"
	"github.com/okian/devpulse/pkg/metrics"
)

// SourceStatus reports how one upstream call fared during a run.
type SourceStatus struct {
	Name       string `json:"name"`
	Outcome    string `json:"outcome"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Aggregate is one full aggregation run over a window.
type Aggregate struct {
	RunID          string             `json:"run_id"`
	WindowDays     int                `json:"window_days"`
	Epoch          int64              `json:"epoch"`
	GeneratedAt    time.Time          `json:"generated_at"`
	Leaderboard    []model.ScoreEntry `json:"leaderboard"`
	OpenItems      []model.WorkItem   `json:"open_items"`
	CompletedCount int                `json:"completed_count"`
	CreatedCount   int                `json:"created_count"`
	Timing         timing.Summary     `json:"timing"`
	OpenByPlatform map[string]int     `json:"open_by_platform"`
	OpenByProject  map[string]int     `json:"open_by_project"`
	// StaleByAssignee is keyed by leaderboard identity.
	StaleByAssignee map[string][]timing.StaleItem `json:"stale_by_assignee"`
	Sources         []SourceStatus                `json:"sources"`
	Degraded        bool                          `json:"degraded"`
}

// PersonView is one person's slice of an aggregate.
type PersonView struct {
	Person     directory.Person   `json:"person"`
	WindowDays int                `json:"window_days"`
	Entry      *model.ScoreEntry  `json:"entry,omitempty"`
	Open       []model.WorkItem   `json:"open_items"`
	Stale      []timing.StaleItem `json:"stale_items"`
	Cached     bool               `json:"cached"`
}

// Roster is the support roster for one day.
type Roster struct {
	Date     string             `json:"date"`
	People   []directory.Person `json:"people"`
	Sources  []SourceStatus     `json:"sources"`
	Degraded bool               `json:"degraded"`
}

// Slugs returns the slugs of the people on the roster.
func (r *Roster) Slugs() []string {
	out := make([]string, len(r.People))
	for i, p := range r.People {
		out[i] = p.Slug
	}
	return out
}

func statuses(results []fanout.Result) ([]SourceStatus, bool) {
	out := make([]SourceStatus, len(results))
	degraded := false
	for i, r := range results {
		out[i] = SourceStatus{
			Name:       r.Name,
			Outcome:    r.Outcome,
			DurationMS: r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
		if r.Outcome != metrics.OutcomeOK {
			degraded = true
		}
	}
	return out, degraded
}

// platformKey lower-cases a label and turns spaces into dashes, so the
// label "Apple TV" matches the platform slug "apple-tv".
func platformKey(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "-")
}

// assignPlatforms sets Platform on items that have none, using the first
// label (other than skip) that names a directory platform.
func assignPlatforms(items []model.WorkItem, platforms []directory.Platform, skip string) {
	if len(platforms) == 0 {
		return
	}
	known := make(map[string]string, len(platforms))
	for _, p := range platforms {
		known[platformKey(p.Slug)] = p.Slug
	}
	for i := range items {
		if items[i].Platform != "" {
			continue
		}
		for _, label := range items[i].Labels {
			if strings.EqualFold(label, skip) {
				continue
			}
			if slug, ok := known[platformKey(label)]; ok {
				items[i].Platform = slug
				break
			}
		}
	}
}

// mergeItems concatenates item lists, keeping the first copy of each id.
func mergeItems(lists ...[]model.WorkItem) []model.WorkItem {
	var out []model.WorkItem
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, it := range list {
			if it.ID != "" {
				if _, dup := seen[it.ID]; dup {
					continue
				}
				seen[it.ID] = struct{}{}
			}
			out = append(out, it)
		}
	}
	return out
}
