package service

import (
	"context"

	"github.com/okian/devpulse/internal/domain/model"
)

// Tracker is the issue-tracker boundary.
type Tracker interface {
	OpenWorkItems(ctx context.Context, maxPriority int, label string) ([]model.WorkItem, error)
	CompletedWorkItems(ctx context.Context, maxPriority int, label string, days int) ([]model.WorkItem, error)
	CreatedWorkItems(ctx context.Context, maxPriority int, label string, days int) ([]model.WorkItem, error)
	Projects(ctx context.Context) ([]model.Project, error)
	OpenWorkItemsInProjects(ctx context.Context, names []string) ([]model.WorkItem, error)
}

// SourceControl is the pull-request boundary. Results are keyed by login.
type SourceControl interface {
	MergedPullRequestsByAuthor(ctx context.Context, days int) (map[string][]model.PullRequest, error)
	MergedPullRequestsByReviewer(ctx context.Context, days int) (map[string][]model.PullRequest, error)
}
