// Package model contains domain models passed between layers.
package model

import (
	"strconv"
	"strings"
)

// WorkItem is a tracker issue. Timestamps are kept as the raw ISO-8601
// strings the tracker returned; they may be empty or malformed.
type WorkItem struct {
	ID          string   `json:"id" koanf:"id"`
	Title       string   `json:"title" koanf:"title"`
	URL         string   `json:"url,omitempty" koanf:"url"`
	Priority    int      `json:"priority" koanf:"priority"` // 1 = most urgent
	Assignee    string   `json:"assignee,omitempty" koanf:"assignee"`
	State       string   `json:"state,omitempty" koanf:"state"`
	CreatedAt   string   `json:"created_at,omitempty" koanf:"created_at"`
	StartedAt   string   `json:"started_at,omitempty" koanf:"started_at"`
	CompletedAt string   `json:"completed_at,omitempty" koanf:"completed_at"`
	UpdatedAt   string   `json:"updated_at,omitempty" koanf:"updated_at"`
	Labels      []string `json:"labels,omitempty" koanf:"labels"`
	Project     string   `json:"project,omitempty" koanf:"project"`
	Platform    string   `json:"platform,omitempty" koanf:"platform"`
}

// HasLabel reports whether the item carries label, ignoring case.
func (w WorkItem) HasLabel(label string) bool {
	for _, l := range w.Labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// Review is one review left on a pull request.
type Review struct {
	Reviewer string `json:"reviewer" koanf:"reviewer"`
	State    string `json:"state" koanf:"state"`
}

// Review states reported by source control.
const (
	ReviewApproved         = "APPROVED"
	ReviewChangesRequested = "CHANGES_REQUESTED"
	ReviewCommented        = "COMMENTED"
)

// PullRequest is a merged change in source control.
type PullRequest struct {
	ID         string   `json:"id" koanf:"id"`
	Number     int      `json:"number" koanf:"number"`
	Title      string   `json:"title" koanf:"title"`
	URL        string   `json:"url,omitempty" koanf:"url"`
	Repository string   `json:"repository" koanf:"repository"`
	Author     string   `json:"author" koanf:"author"`
	MergedAt   string   `json:"merged_at,omitempty" koanf:"merged_at"`
	ClosedAt   string   `json:"closed_at,omitempty" koanf:"closed_at"`
	Reviews    []Review `json:"reviews,omitempty" koanf:"reviews"`
}

// Key identifies the pull request across sources.
func (p PullRequest) Key() string {
	if p.ID != "" {
		return p.ID
	}
	if p.URL != "" {
		return p.URL
	}
	return p.Repository + "#" + strconv.Itoa(p.Number)
}

// Timestamp returns MergedAt, falling back to ClosedAt.
func (p PullRequest) Timestamp() string {
	if p.MergedAt != "" {
		return p.MergedAt
	}
	return p.ClosedAt
}

// Project statuses with special meaning.
const (
	ProjectCompleted  = "Completed"
	ProjectIncomplete = "Incomplete"
)

// Project is a tracker project, possibly part of one or more initiatives.
type Project struct {
	ID          string   `json:"id" koanf:"id"`
	Name        string   `json:"name" koanf:"name"`
	URL         string   `json:"url,omitempty" koanf:"url"`
	Status      string   `json:"status" koanf:"status"`
	Lead        string   `json:"lead,omitempty" koanf:"lead"`
	Members     []string `json:"members,omitempty" koanf:"members"`
	StartDate   string   `json:"start_date,omitempty" koanf:"start_date"`
	TargetDate  string   `json:"target_date,omitempty" koanf:"target_date"`
	Initiatives []string `json:"initiatives,omitempty" koanf:"initiatives"`
}

// InInitiative reports whether the project belongs to initiative.
func (p Project) InInitiative(initiative string) bool {
	for _, i := range p.Initiatives {
		if i == initiative {
			return true
		}
	}
	return false
}

// Terminal reports whether the project is completed or abandoned.
func (p Project) Terminal() bool {
	return p.Status == ProjectCompleted || p.Status == ProjectIncomplete
}
