// Package timing summarizes how long work items waited and took.
package timing

import (
	"math"
	"sort"
	"time"

	"github.com/okian/devpulse/internal/domain/model"
)

const day = 24 * time.Hour

// Stat is an average and 95th percentile in whole days.
type Stat struct {
	Avg     int `json:"avg_days"`
	P95     int `json:"p95_days"`
	Samples int `json:"samples"`
}

// Summary holds lead (created to completed), queue (created to started) and
// work (started to completed) times.
type Summary struct {
	Lead  Stat `json:"lead"`
	Queue Stat `json:"queue"`
	Work  Stat `json:"work"`
}

// Summarize computes time metrics over completed items. Pairs with a missing
// or unparseable timestamp are skipped per metric.
func Summarize(items []model.WorkItem) Summary {
	var lead, queue, work []int
	for _, it := range items {
		created, hasCreated := model.ParseTime(it.CreatedAt)
		started, hasStarted := model.ParseTime(it.StartedAt)
		completed, hasCompleted := model.ParseTime(it.CompletedAt)

		if hasCreated && hasCompleted {
			lead = append(lead, days(completed.Sub(created)))
		}
		if hasCreated && hasStarted {
			queue = append(queue, days(started.Sub(created)))
		}
		if hasStarted && hasCompleted {
			work = append(work, days(completed.Sub(started)))
		}
	}
	return Summary{Lead: stat(lead), Queue: stat(queue), Work: stat(work)}
}

func days(d time.Duration) int {
	return int(d / day)
}

func stat(samples []int) Stat {
	n := len(samples)
	if n == 0 {
		return Stat{}
	}
	sorted := make([]int, n)
	copy(sorted, samples)
	sort.Ints(sorted)

	sum := 0
	for _, v := range sorted {
		sum += v
	}
	idx := int(float64(n) * 0.95)
	if idx >= n {
		idx = n - 1
	}
	return Stat{
		Avg:     int(math.Round(float64(sum) / float64(n))),
		P95:     sorted[idx],
		Samples: n,
	}
}

// ByPlatform counts items per platform; items without a platform are skipped.
func ByPlatform(items []model.WorkItem) map[string]int {
	out := map[string]int{}
	for _, it := range items {
		if it.Platform == "" {
			continue
		}
		out[it.Platform]++
	}
	return out
}

// NoProject groups items that are not attached to a project.
const NoProject = "No Project"

// ByProject counts items per project name.
func ByProject(items []model.WorkItem) map[string]int {
	out := map[string]int{}
	for _, it := range items {
		name := it.Project
		if name == "" {
			name = NoProject
		}
		out[name]++
	}
	return out
}

// StaleItem is an open item nobody has touched for a while.
type StaleItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url,omitempty"`
	Priority  int    `json:"priority"`
	Platform  string `json:"platform,omitempty"`
	DaysStale int    `json:"days_stale"`
}

// StaleByAssignee groups assigned items last updated more than staleDays
// whole days before now. key maps the raw assignee to the grouping key; a nil
// key groups by the raw name and an empty key drops the item. Unassigned items
// and items with an unparseable update time are skipped. Each group is sorted
// stalest first.
func StaleByAssignee(items []model.WorkItem, now time.Time, staleDays int, key func(string) string) map[string][]StaleItem {
	out := map[string][]StaleItem{}
	for _, it := range items {
		if it.Assignee == "" {
			continue
		}
		updated, ok := model.ParseTime(it.UpdatedAt)
		if !ok {
			continue
		}
		age := days(now.Sub(updated))
		if age <= staleDays {
			continue
		}
		k := it.Assignee
		if key != nil {
			k = key(it.Assignee)
		}
		if k == "" {
			continue
		}
		out[k] = append(out[k], StaleItem{
			ID:        it.ID,
			Title:     it.Title,
			URL:       it.URL,
			Priority:  it.Priority,
			Platform:  it.Platform,
			DaysStale: age,
		})
	}
	for _, list := range out {
		sort.SliceStable(list, func(i, j int) bool { return list[i].DaysStale > list[j].DaysStale })
	}
	return out
}
